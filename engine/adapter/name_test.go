package adapter

import "testing"

func TestMangleName(t *testing.T) {
	cases := map[string]string{
		"room_desc":      "Room.Desc",
		"char_vital_hp":  "Char.Vital.Hp",
		"look":           "Custom.Look",
		"text":           "Custom.Text",
		"room_desc_long": "Room.Desc.Long",
	}
	for name, want := range cases {
		if got := MangleName(name); got != want {
			t.Errorf("MangleName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestUnmangleName(t *testing.T) {
	cases := map[string]string{
		"Room.Desc":     "room_desc",
		"Custom.Look":   "look",
		"Char.Vital.Hp": "char_vital_hp",
		"Core.Hello":    "core_hello",
	}
	for path, want := range cases {
		if got := UnmangleName(path); got != want {
			t.Errorf("UnmangleName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestNameRoundTrip(t *testing.T) {
	for _, name := range []string{"room_desc", "look", "who", "char_vital_hp", "a_b_c_d"} {
		if got := UnmangleName(MangleName(name)); got != name {
			t.Errorf("round trip of %q gave %q", name, got)
		}
	}
}
