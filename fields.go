package outbox

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Server-authoritative optimistic concurrency metadata keys embedded in a
// mutation's data blob.
const (
	FieldVersion       = "_version"
	FieldLastChangedAt = "_lastChangedAt"
	FieldDeleted       = "_deleted"
)

// FieldMap is the decoded form of a mutation's data blob.
type FieldMap map[string]any

func isMetadataField(name string) bool {
	return name == FieldVersion || name == FieldLastChangedAt || name == FieldDeleted
}

// decodeFields parses a stored JSON field map.
func decodeFields(raw json.RawMessage) (FieldMap, error) {
	if len(raw) == 0 {
		return FieldMap{}, nil
	}

	var fields FieldMap
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	if fields == nil {
		fields = FieldMap{}
	}

	return fields, nil
}

func encodeFields(fields FieldMap) (json.RawMessage, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("outbox encode fields failed: %w", err)
	}

	return raw, nil
}

// mergeData merges two stored field maps. Metadata comes from previous, the
// older record being closer to the last known server state; everything else
// is a union with current winning on key collisions.
func mergeData(previous, current json.RawMessage) (json.RawMessage, error) {
	prev, err := decodeFields(previous)
	if err != nil {
		return nil, err
	}
	cur, err := decodeFields(current)
	if err != nil {
		return nil, err
	}

	merged := make(FieldMap, len(prev)+len(cur))
	for name, value := range prev {
		merged[name] = value
	}
	for name, value := range cur {
		if isMetadataField(name) {
			continue
		}
		merged[name] = value
	}

	return encodeFields(merged)
}

// conditionEmpty reports whether a serialized condition carries no predicates.
func conditionEmpty(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return true, nil
	}

	var condition map[string]any
	if err := json.Unmarshal(raw, &condition); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	return len(condition) == 0, nil
}

// stripFields copies fields without the metadata keys and the model's
// timestamp fields.
func stripFields(fields FieldMap, timestamps TimestampFields) FieldMap {
	out := make(FieldMap, len(fields))
	for name, value := range fields {
		if isMetadataField(name) || name == timestamps.CreatedAt || name == timestamps.UpdatedAt {
			continue
		}
		out[name] = value
	}

	return out
}

// fieldsEqual compares two decoded field maps by value.
func fieldsEqual(a, b FieldMap) bool {
	return reflect.DeepEqual(a, b)
}
