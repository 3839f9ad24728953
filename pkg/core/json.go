package core

import (
	"encoding/json"
	"fmt"
)

// DecodeState decodes a JSON state payload, normalising integral numbers to
// int so that values survive a storage round trip with the same dynamic
// type they were saved with.
func DecodeState(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode state payload: %w", err)
	}
	return normaliseValue(raw), nil
}

// EncodeState renders a state payload as JSON for storage.
func EncodeState(state any) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state payload: %w", err)
	}
	return data, nil
}
