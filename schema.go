package outbox

import (
	"fmt"
	"strings"
)

// identifierSeparator joins composite identifier values into one model id.
const identifierSeparator = "-"

// TimestampFields names a model's managed timestamp fields.
type TimestampFields struct {
	CreatedAt string
	UpdatedAt string
}

// DefaultTimestampFields applies when a model declares no custom names.
var DefaultTimestampFields = TimestampFields{CreatedAt: "createdAt", UpdatedAt: "updatedAt"}

// SchemaRegistry resolves per-model metadata the engine cannot derive from a
// mutation alone.
type SchemaRegistry interface {
	// IdentifierFields returns the field names composing the model's
	// identifier, in order.
	IdentifierFields(model string) []string
	// TimestampFields returns the model's timestamp field names.
	TimestampFields(model string) TimestampFields
}

// ModelSchema describes one model registered with a StaticSchemaRegistry.
type ModelSchema struct {
	// IdentifierFields composing the record identifier, in order.
	// Empty means a single "id" field.
	IdentifierFields []string
	// Timestamps overrides the default timestamp field names where non-empty.
	Timestamps TimestampFields
}

// StaticSchemaRegistry is a map-backed SchemaRegistry. Unknown models fall
// back to an "id" identifier and the default timestamp names.
type StaticSchemaRegistry struct {
	models map[string]ModelSchema
}

// NewStaticSchemaRegistry builds a registry from the given model schemas.
// A nil map yields a registry of defaults.
func NewStaticSchemaRegistry(models map[string]ModelSchema) *StaticSchemaRegistry {
	copied := make(map[string]ModelSchema, len(models))
	for name, schema := range models {
		copied[name] = schema
	}

	return &StaticSchemaRegistry{models: copied}
}

// IdentifierFields implements SchemaRegistry.
func (r *StaticSchemaRegistry) IdentifierFields(model string) []string {
	if schema, ok := r.models[model]; ok && len(schema.IdentifierFields) > 0 {
		return schema.IdentifierFields
	}

	return []string{"id"}
}

// TimestampFields implements SchemaRegistry.
func (r *StaticSchemaRegistry) TimestampFields(model string) TimestampFields {
	fields := DefaultTimestampFields
	if schema, ok := r.models[model]; ok {
		if schema.Timestamps.CreatedAt != "" {
			fields.CreatedAt = schema.Timestamps.CreatedAt
		}
		if schema.Timestamps.UpdatedAt != "" {
			fields.UpdatedAt = schema.Timestamps.UpdatedAt
		}
	}

	return fields
}

// identifierValue computes a record's model id from its fields.
func identifierValue(registry SchemaRegistry, model string, fields FieldMap) (string, error) {
	names := registry.IdentifierFields(model)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		value, ok := fields[name]
		if !ok {
			return "", fmt.Errorf("%w: identifier field %q missing for model %q", ErrMalformedData, name, model)
		}
		parts = append(parts, fmt.Sprint(value))
	}

	return strings.Join(parts, identifierSeparator), nil
}
