package outbox

import (
	"encoding/json"
	"errors"
	"testing"
)

func mustDecode(t *testing.T, raw json.RawMessage) FieldMap {
	t.Helper()
	fields, err := decodeFields(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return fields
}

func TestMergeDataCurrentWinsOnCollision(t *testing.T) {
	merged, err := mergeData(
		json.RawMessage(`{"a":1,"b":2}`),
		json.RawMessage(`{"b":3,"c":4}`),
	)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	fields := mustDecode(t, merged)
	want := FieldMap{"a": float64(1), "b": float64(3), "c": float64(4)}
	if !fieldsEqual(fields, want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
}

func TestMergeDataMetadataFromPrevious(t *testing.T) {
	merged, err := mergeData(
		json.RawMessage(`{"a":1,"_version":4,"_lastChangedAt":100,"_deleted":false}`),
		json.RawMessage(`{"a":2,"_version":1,"_lastChangedAt":5,"_deleted":true}`),
	)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	fields := mustDecode(t, merged)
	want := FieldMap{
		"a":                float64(2),
		FieldVersion:       float64(4),
		FieldLastChangedAt: float64(100),
		FieldDeleted:       false,
	}
	if !fieldsEqual(fields, want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
}

func TestMergeDataDropsCurrentOnlyMetadata(t *testing.T) {
	merged, err := mergeData(
		json.RawMessage(`{"a":1}`),
		json.RawMessage(`{"a":2,"_version":9}`),
	)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	fields := mustDecode(t, merged)
	if _, ok := fields[FieldVersion]; ok {
		t.Fatalf("expected no version, got %v", fields[FieldVersion])
	}
}

func TestMergeDataMalformed(t *testing.T) {
	if _, err := mergeData(json.RawMessage(`{`), json.RawMessage(`{}`)); !errors.Is(err, ErrMalformedData) {
		t.Fatalf("expected ErrMalformedData, got %v", err)
	}
	if _, err := mergeData(json.RawMessage(`{}`), json.RawMessage(`not json`)); !errors.Is(err, ErrMalformedData) {
		t.Fatalf("expected ErrMalformedData, got %v", err)
	}
}

func TestConditionEmpty(t *testing.T) {
	cases := []struct {
		name      string
		condition json.RawMessage
		empty     bool
		wantErr   bool
	}{
		{name: "nil", condition: nil, empty: true},
		{name: "empty object", condition: json.RawMessage(`{}`), empty: true},
		{name: "null", condition: json.RawMessage(`null`), empty: true},
		{name: "non-empty", condition: json.RawMessage(`{"rating":{"gt":4}}`), empty: false},
		{name: "malformed", condition: json.RawMessage(`{`), wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			empty, err := conditionEmpty(tc.condition)
			if tc.wantErr {
				if !errors.Is(err, ErrMalformedData) {
					t.Fatalf("expected ErrMalformedData, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if empty != tc.empty {
				t.Fatalf("expected empty=%v, got %v", tc.empty, empty)
			}
		})
	}
}

func TestStripFields(t *testing.T) {
	fields := FieldMap{
		"id":                "p1",
		"title":             "hello",
		FieldVersion:       float64(3),
		FieldLastChangedAt: float64(50),
		FieldDeleted:       false,
		"createdAt":         "2026-01-01T00:00:00Z",
		"updatedAt":         "2026-01-02T00:00:00Z",
	}

	stripped := stripFields(fields, DefaultTimestampFields)
	want := FieldMap{"id": "p1", "title": "hello"}
	if !fieldsEqual(stripped, want) {
		t.Fatalf("expected %v, got %v", want, stripped)
	}
}

func TestStripFieldsCustomTimestamps(t *testing.T) {
	fields := FieldMap{"id": "p1", "created_on": 1, "modified_on": 2, "createdAt": 3}

	stripped := stripFields(fields, TimestampFields{CreatedAt: "created_on", UpdatedAt: "modified_on"})
	// createdAt survives here because the model renamed its timestamp fields.
	want := FieldMap{"id": "p1", "createdAt": 3}
	if !fieldsEqual(stripped, want) {
		t.Fatalf("expected %v, got %v", want, stripped)
	}
}
