package orchestrate

import (
	"bytes"
	"encoding/json"

	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// decodeList reads a listing the API answers with either as a bare array
// or as an object holding the array under key.
func decodeList[T any](op, key string, raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var items []T
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, wxerrors.Serialization(op, err)
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, wxerrors.Serialization(op, err)
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, wxerrors.Serialization(op, err)
	}
	return items, nil
}
