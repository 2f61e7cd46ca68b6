package streams

import (
	"encoding/json"
	"fmt"
)

// Encoding converts between entry payload bytes and values. A stream may
// override the encoding used for its own decode/encode step; the default is
// Binary (raw bytes pass-through).
type Encoding interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// Binary passes byte slices through unchanged and accepts strings on encode.
type Binary struct{}

func (Binary) Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("binary encoding: unsupported type %T", v)
	}
}

func (Binary) Decode(b []byte) (any, error) { return b, nil }

// UTF8 decodes payloads to strings.
type UTF8 struct{}

func (UTF8) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("utf-8 encoding: unsupported type %T", v)
	}
	return []byte(s), nil
}

func (UTF8) Decode(b []byte) (any, error) { return string(b), nil }

// JSON marshals values to and from JSON payloads.
type JSON struct{}

func (JSON) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Decode(b []byte) (any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
