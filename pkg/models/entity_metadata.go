package models

import "strings"

// EntityMetadata is the normalized metadata for one entity, as resolved from
// the Web API entity definition. Immutable once fetched; EntitySetName is the
// pluralized collection name used in list queries.
type EntityMetadata struct {
	LogicalName          string            `json:"logical_name"`
	DisplayName          string            `json:"display_name"`
	EntitySetName        string            `json:"entity_set_name"`
	PrimaryIDAttribute   string            `json:"primary_id_attribute"`
	PrimaryNameAttribute string            `json:"primary_name_attribute"`
	LookupAttributes     []LookupAttribute `json:"lookup_attributes"`
}

// LookupAttribute is one lookup-typed attribute of an entity. Targets may hold
// more than one entity (polymorphic lookups) and may be empty when metadata is
// incomplete; callers must tolerate both.
type LookupAttribute struct {
	LogicalName     string   `json:"logical_name"`
	DisplayName     string   `json:"display_name"`
	Targets         []string `json:"targets"`
	LookupFieldName string   `json:"lookup_field_name"`
}

// NewLookupAttribute builds a LookupAttribute with its derived lookup field name.
func NewLookupAttribute(logicalName, displayName string, targets []string) LookupAttribute {
	return LookupAttribute{
		LogicalName:     logicalName,
		DisplayName:     displayName,
		Targets:         targets,
		LookupFieldName: LookupFieldName(logicalName),
	}
}

// Targets check is case-insensitive because the Web API reports logical names
// lower-cased but callers frequently pass display-cased names.
func (a LookupAttribute) TargetsEntity(entity string) bool {
	for _, t := range a.Targets {
		if strings.EqualFold(t, entity) {
			return true
		}
	}
	return false
}

// LookupsTargeting returns the lookup attributes of m that can point at the
// given entity. Returns nil when none match.
func (m *EntityMetadata) LookupsTargeting(entity string) []LookupAttribute {
	var matches []LookupAttribute
	for _, attr := range m.LookupAttributes {
		if attr.TargetsEntity(entity) {
			matches = append(matches, attr)
		}
	}
	return matches
}

// IsValidEntityName reports whether a caller-supplied entity name is usable.
// Empty, whitespace-only, and the "unknown" placeholder emitted by
// uninitialized form state are all rejected so that resolvers can
// short-circuit without a network call.
func IsValidEntityName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	return !strings.EqualFold(trimmed, "unknown")
}

// ColumnDescriptor is schema-shaped column info (name plus declared type) used
// by column-sample inference when no row data is available.
type ColumnDescriptor struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Record is one raw entity record as returned by a list query. Values are
// left untyped; lookup columns are probed by key shape, not by value.
type Record map[string]any
