package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/pipesim/internal/ir"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
// A nil payload is stored as "{}".
func marshalPayload(p map[string]any) (string, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored JSON. Numbers decode as json.Number so
// integers survive the round trip; "{}" decodes to nil.
func unmarshalPayload(s string) (map[string]any, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var p map[string]any
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}
