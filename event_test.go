package outbox

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMutationEventValidate(t *testing.T) {
	validData := json.RawMessage(`{"id":"p1","title":"hello"}`)

	cases := []struct {
		name  string
		event MutationEvent
		err   error
	}{
		{
			name:  "missing model",
			event: MutationEvent{ID: "m1", ModelID: "p1", Operation: OpCreate, Data: validData},
			err:   ErrModelRequired,
		},
		{
			name:  "missing model id",
			event: MutationEvent{ID: "m1", Model: "Post", Operation: OpCreate, Data: validData},
			err:   ErrModelIDRequired,
		},
		{
			name:  "invalid operation",
			event: MutationEvent{ID: "m1", ModelID: "p1", Model: "Post", Operation: "upsert", Data: validData},
			err:   ErrInvalidOperation,
		},
		{
			name:  "missing data",
			event: MutationEvent{ID: "m1", ModelID: "p1", Model: "Post", Operation: OpCreate},
			err:   ErrDataRequired,
		},
		{
			name:  "invalid data",
			event: MutationEvent{ID: "m1", ModelID: "p1", Model: "Post", Operation: OpCreate, Data: json.RawMessage(`{`)},
			err:   ErrInvalidData,
		},
		{
			name: "invalid condition",
			event: MutationEvent{
				ID: "m1", ModelID: "p1", Model: "Post", Operation: OpUpdate,
				Data: validData, Condition: json.RawMessage(`{`),
			},
			err: ErrInvalidCondition,
		},
		{
			name:  "valid",
			event: MutationEvent{ID: "m1", ModelID: "p1", Model: "Post", Operation: OpUpdate, Data: validData},
			err:   nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestNewMutationEventGeneratesID(t *testing.T) {
	first := NewMutationEvent("Post", "p1", OpCreate, json.RawMessage(`{"id":"p1"}`))
	second := NewMutationEvent("Post", "p1", OpCreate, json.RawMessage(`{"id":"p1"}`))

	if first.ID == "" {
		t.Fatal("expected a generated id")
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, got %q twice", first.ID)
	}
}

func TestNewMutationEventOptions(t *testing.T) {
	condition := json.RawMessage(`{"title":{"eq":"hello"}}`)
	event := NewMutationEvent("Post", "p1", OpUpdate, json.RawMessage(`{"id":"p1"}`),
		WithID("fixed"),
		WithCondition(condition),
	)

	if event.ID != "fixed" {
		t.Fatalf("expected id %q, got %q", "fixed", event.ID)
	}
	if string(event.Condition) != string(condition) {
		t.Fatalf("expected condition %s, got %s", condition, event.Condition)
	}
}
