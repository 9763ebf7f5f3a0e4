package api

import (
	"encoding/json"
	"fmt"
)

// CodecName is registered under the name Connect uses for JSON payloads,
// so the wire format stays compatible with any Connect JSON client.
const CodecName = "json"

// Codec marshals plain Go messages as JSON. It replaces Connect's default
// JSON codec, which only accepts protobuf messages.
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
