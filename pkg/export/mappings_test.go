package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

func sampleRelationships() []*models.DiscoveredRelationship {
	return []*models.DiscoveredRelationship{
		{
			ParentEntity: "account", ChildEntity: "contact",
			LookupColumn: "_parentcustomerid_value",
			Confidence:   models.ConfidenceHigh, Source: models.SourceMetadata,
		},
		{
			ParentEntity: "account", ChildEntity: "new_widget",
			LookupColumn: "_accountid_value",
			Confidence:   models.ConfidenceLow, Source: models.SourcePattern,
		},
		{
			ParentEntity: "contact", ChildEntity: "task",
			LookupColumn: "_regardingobjectid_value",
			Confidence:   models.ConfidenceMedium, Source: models.SourceRecordAnalysis,
		},
	}
}

func TestExportFiltersByThreshold(t *testing.T) {
	data, err := ExportDiscoveredMappings(sampleRelationships(), models.ConfidenceMedium)
	require.NoError(t, err)

	mappings, err := ImportMappings(data)
	require.NoError(t, err)

	require.Len(t, mappings, 2, "low-confidence pattern guesses stay out of the export")
	for _, m := range mappings {
		assert.True(t, m.Confidence.AtLeast(models.ConfidenceMedium))
	}
}

func TestExportOrderIsStable(t *testing.T) {
	data, err := ExportDiscoveredMappings(sampleRelationships(), models.ConfidenceLow)
	require.NoError(t, err)

	mappings, err := ImportMappings(data)
	require.NoError(t, err)
	require.Len(t, mappings, 3)

	assert.Equal(t, "account_contact", mappings[0].Name)
	assert.Equal(t, "account_new_widget", mappings[1].Name)
	assert.Equal(t, "contact_task", mappings[2].Name)
}

func TestExportRejectsInvalidThreshold(t *testing.T) {
	_, err := ExportDiscoveredMappings(sampleRelationships(), "certain")
	assert.Error(t, err)
}

func TestImportRejectsCorruptFiles(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", ":\n:::"},
		{"wrong version", "version: 99\nmappings: []"},
		{
			"missing lookup column",
			"version: 1\nmappings:\n  - name: a_b\n    parent_entity: a\n    child_entity: b",
		},
		{
			"bad confidence",
			"version: 1\nmappings:\n  - name: a_b\n    parent_entity: a\n    child_entity: b\n    lookup_column: _aid_value\n    confidence: certain\n    source: metadata",
		},
		{
			"bad source",
			"version: 1\nmappings:\n  - name: a_b\n    parent_entity: a\n    child_entity: b\n    lookup_column: _aid_value\n    confidence: high\n    source: vibes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportMappings([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	data, err := ExportDiscoveredMappings(sampleRelationships(), models.ConfidenceHigh)
	require.NoError(t, err)

	mappings, err := ImportMappings(data)
	require.NoError(t, err)
	require.Len(t, mappings, 1)

	m := mappings[0]
	assert.Equal(t, "account", m.ParentEntity)
	assert.Equal(t, "contact", m.ChildEntity)
	assert.Equal(t, "_parentcustomerid_value", m.LookupColumn)
	assert.Equal(t, models.ConfidenceHigh, m.Confidence)
	assert.Equal(t, models.SourceMetadata, m.Source)
}
