// Package export serializes discovered relationships into a stable,
// re-ingestible mapping file intended to seed a future session's manual
// mapping table.
package export

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// FormatVersion identifies the mapping file layout.
const FormatVersion = 1

// MappingFile is the on-disk form of exported mappings.
type MappingFile struct {
	Version     int                          `yaml:"version"`
	GeneratedAt time.Time                    `yaml:"generated_at"`
	Threshold   models.Confidence            `yaml:"confidence_threshold"`
	Mappings    []models.RelationshipMapping `yaml:"mappings"`
}

// MappingName derives the stable name for a promoted pair.
func MappingName(parentEntity, childEntity string) string {
	return fmt.Sprintf("%s_%s", parentEntity, childEntity)
}

// ExportDiscoveredMappings serializes every relationship at or above the
// confidence threshold. Output order is stable (parent, then child) so
// exports diff cleanly between sessions.
func ExportDiscoveredMappings(rels []*models.DiscoveredRelationship, threshold models.Confidence) ([]byte, error) {
	if !models.IsValidConfidence(threshold) {
		return nil, fmt.Errorf("invalid confidence threshold %q", threshold)
	}

	file := MappingFile{
		Version:     FormatVersion,
		GeneratedAt: time.Now().UTC(),
		Threshold:   threshold,
	}

	for _, rel := range rels {
		if !rel.Confidence.AtLeast(threshold) {
			continue
		}
		file.Mappings = append(file.Mappings, models.NewMapping(
			MappingName(rel.ParentEntity, rel.ChildEntity), rel))
	}

	sort.Slice(file.Mappings, func(i, j int) bool {
		a, b := file.Mappings[i], file.Mappings[j]
		if a.ParentEntity != b.ParentEntity {
			return a.ParentEntity < b.ParentEntity
		}
		return a.ChildEntity < b.ChildEntity
	})

	return yaml.Marshal(file)
}

// ImportMappings parses a previously exported mapping file. Entries with
// missing required fields or invalid tags are rejected, not silently
// dropped: a corrupt seed file should be noticed, not half-applied.
func ImportMappings(data []byte) ([]models.RelationshipMapping, error) {
	var file MappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse mapping file: %w", err)
	}
	if file.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported mapping file version %d", file.Version)
	}

	for i, m := range file.Mappings {
		if m.Name == "" || m.ParentEntity == "" || m.ChildEntity == "" || m.LookupColumn == "" {
			return nil, fmt.Errorf("mapping %d is missing required fields", i)
		}
		if !models.IsValidConfidence(m.Confidence) {
			return nil, fmt.Errorf("mapping %q has invalid confidence %q", m.Name, m.Confidence)
		}
		if !models.IsValidSource(m.Source) {
			return nil, fmt.Errorf("mapping %q has invalid source %q", m.Name, m.Source)
		}
	}

	return file.Mappings, nil
}
