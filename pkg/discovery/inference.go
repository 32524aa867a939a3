package discovery

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// InferFromRecords recovers relationships from a batch of already-fetched
// child records: every field following the lookup column convention, minus
// the entity's own primary key, is resolved to its target entities via
// metadata, and each match becomes a high-confidence relationship.
func (d *Discoverer) InferFromRecords(ctx context.Context, childEntity string, records []models.Record) ([]*models.DiscoveredRelationship, error) {
	if !models.IsValidEntityName(childEntity) || len(records) == 0 {
		return nil, nil
	}

	fields := make(map[string]bool)
	for _, rec := range records {
		for key := range rec {
			if models.IsLookupValueField(key) {
				fields[key] = true
			}
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}

	// Stable order keeps inference output deterministic across runs.
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	return d.inferFromCandidates(ctx, childEntity, names, models.SourceRecordAnalysis)
}

// InferFromColumns is the schema-shaped variant of InferFromRecords, driven
// by column descriptors (name plus declared type) instead of live rows.
func (d *Discoverer) InferFromColumns(ctx context.Context, childEntity string, columns []models.ColumnDescriptor) ([]*models.DiscoveredRelationship, error) {
	if !models.IsValidEntityName(childEntity) || len(columns) == 0 {
		return nil, nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, col := range columns {
		if !models.IsLookupValueField(col.Name) || seen[col.Name] {
			continue
		}
		if !isLookupColumnType(col.Type) {
			continue
		}
		seen[col.Name] = true
		names = append(names, col.Name)
	}
	sort.Strings(names)

	return d.inferFromCandidates(ctx, childEntity, names, models.SourceColumnAnalysis)
}

// isLookupColumnType accepts declared types that can carry a lookup
// reference. Unknown or empty types are kept: column descriptors from the
// grid layer often omit types entirely.
func isLookupColumnType(declared string) bool {
	if declared == "" {
		return true
	}
	switch strings.ToLower(declared) {
	case "lookup", "customer", "owner", "uniqueidentifier", "edm.guid", "guid":
		return true
	}
	return false
}

func (d *Discoverer) inferFromCandidates(ctx context.Context, childEntity string, fieldNames []string, source models.Source) ([]*models.DiscoveredRelationship, error) {
	meta, err := d.resolver.Resolve(ctx, childEntity)
	if err != nil {
		return nil, err
	}

	primaryID := ""
	lookupsByField := make(map[string]models.LookupAttribute)
	if meta != nil {
		primaryID = meta.PrimaryIDAttribute
		for _, attr := range meta.LookupAttributes {
			lookupsByField[attr.LookupFieldName] = attr
		}
	}

	var results []*models.DiscoveredRelationship
	for _, field := range fieldNames {
		attrName, ok := models.AttributeFromLookupField(field)
		if !ok {
			continue
		}
		// Never report the entity's own primary key as a lookup, even when
		// its name happens to match the convention.
		if primaryID != "" && attrName == primaryID {
			continue
		}

		attr, known := lookupsByField[field]
		if !known {
			// No metadata for this candidate: custom fields can follow the
			// naming convention without being real lookups, so there is no
			// target to report and no relationship to record.
			d.logger.Debug("unresolvable lookup candidate",
				zap.String("entity", childEntity),
				zap.String("field", field))
			continue
		}

		for _, target := range attr.Targets {
			rel := &models.DiscoveredRelationship{
				ParentEntity: target,
				ChildEntity:  childEntity,
				LookupColumn: field,
				DisplayName:  attr.DisplayName,
				Confidence:   models.ConfidenceHigh,
				Source:       source,
				DiscoveredAt: time.Now().UTC(),
			}
			d.cache.PutRelationship(rel)
			results = append(results, rel)
		}
	}

	return results, nil
}
