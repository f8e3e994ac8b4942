package envelope

import (
	"reflect"
	"testing"
)

func TestText(t *testing.T) {
	e := Text("A dark cave.")
	if !e.IsText() {
		t.Errorf("Text envelope should be text")
	}
	if e.TextLine() != "A dark cave." {
		t.Errorf("TextLine is %q", e.TextLine())
	}
}

func TestNormalizedIntegers(t *testing.T) {
	e := New("room_stats", []interface{}{1, int64(2), uint16(3)}, map[string]interface{}{
		"hp": 10,
	})
	want := []interface{}{float64(1), float64(2), float64(3)}
	if !reflect.DeepEqual(e.Args, want) {
		t.Errorf("args not normalized: %#v", e.Args)
	}
	if e.Kwargs["hp"] != float64(10) {
		t.Errorf("kwargs not normalized: %#v", e.Kwargs)
	}
}

func TestNormalizedNested(t *testing.T) {
	e := New("inventory", []interface{}{
		[]interface{}{1, "sword"},
		map[string]interface{}{"count": 2},
	}, nil)
	inner := e.Args[0].([]interface{})
	if inner[0] != float64(1) {
		t.Errorf("nested list not normalized: %#v", inner)
	}
	m := e.Args[1].(map[string]interface{})
	if m["count"] != float64(2) {
		t.Errorf("nested map not normalized: %#v", m)
	}
}

func TestNormalizedMsgpackMapKeys(t *testing.T) {
	v := NormalizeValue(map[interface{}]interface{}{"a": 1})
	m, ok := v.(map[string]interface{})
	if !ok || m["a"] != float64(1) {
		t.Errorf("interface-keyed map not normalized: %#v", v)
	}
}

func TestEqual(t *testing.T) {
	a := New("say", []interface{}{"hi"}, map[string]interface{}{"volume": 3})
	b := &Envelope{Name: "say", Args: []interface{}{"hi"}, Kwargs: map[string]interface{}{"volume": float64(3)}}
	if !Equal(a, b) {
		t.Errorf("envelopes should be equal after normalization")
	}

	c := New("say", []interface{}{"hello"}, nil)
	if Equal(a, c) {
		t.Errorf("different envelopes should not be equal")
	}
}

func TestNilArgsBecomeEmpty(t *testing.T) {
	e := New("look", nil, nil)
	if e.Args == nil || e.Kwargs == nil {
		t.Errorf("nil args/kwargs should normalize to empty, got %#v", e)
	}
}
