package models

import "time"

// Confidence tags how much a discovered relationship should be trusted.
// High-confidence results can be used silently; anything lower should be
// surfaced to a human before it drives destructive behavior.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ValidConfidences contains all valid confidence values.
var ValidConfidences = []Confidence{
	ConfidenceHigh,
	ConfidenceMedium,
	ConfidenceLow,
}

// IsValidConfidence checks if the given confidence is valid.
func IsValidConfidence(c Confidence) bool {
	for _, v := range ValidConfidences {
		if v == c {
			return true
		}
	}
	return false
}

// Rank returns an ordinal for threshold comparisons (low=1 .. high=3).
// Unknown values rank below low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether c meets or exceeds the given threshold.
func (c Confidence) AtLeast(threshold Confidence) bool {
	return c.Rank() >= threshold.Rank()
}

// Source records which strategy produced a relationship. Retained for
// observability only; it is never a branching key.
type Source string

const (
	SourceMetadata       Source = "metadata"
	SourcePattern        Source = "pattern"
	SourceRecordAnalysis Source = "record-analysis"
	SourceColumnAnalysis Source = "column-analysis"
	SourceManual         Source = "manual"
)

// ValidSources contains all valid source values.
var ValidSources = []Source{
	SourceMetadata,
	SourcePattern,
	SourceRecordAnalysis,
	SourceColumnAnalysis,
	SourceManual,
}

// IsValidSource checks if the given source is valid.
func IsValidSource(s Source) bool {
	for _, v := range ValidSources {
		if v == s {
			return true
		}
	}
	return false
}

// DiscoveredRelationship is the result of relationship discovery for one
// (parent, child) entity pair. LookupColumn always matches the
// `_<attribute>_value` shape; callers build filters from it directly.
type DiscoveredRelationship struct {
	ParentEntity string     `json:"parent_entity" yaml:"parent_entity"`
	ChildEntity  string     `json:"child_entity" yaml:"child_entity"`
	LookupColumn string     `json:"lookup_column" yaml:"lookup_column"`
	DisplayName  string     `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Confidence   Confidence `json:"confidence" yaml:"confidence"`
	Source       Source     `json:"source" yaml:"source"`
	DiscoveredAt time.Time  `json:"discovered_at" yaml:"discovered_at"`
}

// PairKey is the positional cache key for an entity pair.
func PairKey(parentEntity, childEntity string) string {
	return parentEntity + "->" + childEntity
}

// Key returns the positional cache key for this relationship.
func (r *DiscoveredRelationship) Key() string {
	return PairKey(r.ParentEntity, r.ChildEntity)
}

// RelationshipMapping is a promoted, named relationship kept in a flat table
// for reuse by name. Distinct from the pair cache, which is keyed
// positionally.
type RelationshipMapping struct {
	Name         string     `json:"name" yaml:"name"`
	ParentEntity string     `json:"parent_entity" yaml:"parent_entity"`
	ChildEntity  string     `json:"child_entity" yaml:"child_entity"`
	LookupColumn string     `json:"lookup_column" yaml:"lookup_column"`
	Confidence   Confidence `json:"confidence" yaml:"confidence"`
	Source       Source     `json:"source" yaml:"source"`
	PromotedAt   time.Time  `json:"promoted_at" yaml:"promoted_at"`
}

// NewMapping promotes a discovered relationship into a named mapping.
func NewMapping(name string, rel *DiscoveredRelationship) RelationshipMapping {
	return RelationshipMapping{
		Name:         name,
		ParentEntity: rel.ParentEntity,
		ChildEntity:  rel.ChildEntity,
		LookupColumn: rel.LookupColumn,
		Confidence:   rel.Confidence,
		Source:       rel.Source,
		PromotedAt:   time.Now().UTC(),
	}
}
