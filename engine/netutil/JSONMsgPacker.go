package netutil

import (
	"encoding/json"
)

// JSONMsgPacker packs and unpacks messages in JSON format
type JSONMsgPacker struct{}

// PackMsg packs message to bytes in JSON format
func (jp JSONMsgPacker) PackMsg(msg interface{}, buf []byte) ([]byte, error) {
	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return buf, err
	}

	buf = append(buf, jsonBytes...)
	return buf, nil
}

// UnpackMsg unpacks bytes in JSON format to message
func (jp JSONMsgPacker) UnpackMsg(data []byte, msg interface{}) error {
	err := json.Unmarshal(data, msg)
	return err
}
