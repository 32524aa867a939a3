package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEntityName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"normal entity", "account", true},
		{"custom entity", "new_project", true},
		{"empty", "", false},
		{"whitespace only", "   \t", false},
		{"unknown placeholder", "unknown", false},
		{"unknown mixed case", "Unknown", false},
		{"unknown padded", "  unknown  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidEntityName(tt.input))
		})
	}
}

func TestNewLookupAttributeDerivesFieldName(t *testing.T) {
	attr := NewLookupAttribute("parentcustomerid", "Company Name", []string{"account", "contact"})
	assert.Equal(t, "_parentcustomerid_value", attr.LookupFieldName)
	assert.True(t, attr.TargetsEntity("account"))
	assert.True(t, attr.TargetsEntity("Account"), "target match is case-insensitive")
	assert.False(t, attr.TargetsEntity("opportunity"))
}

func TestLookupAttributeEmptyTargets(t *testing.T) {
	// Empty targets is a valid state (incomplete metadata); nothing should
	// treat it as an error.
	attr := NewLookupAttribute("customfield", "Custom", nil)
	assert.False(t, attr.TargetsEntity("account"))
}

func TestLookupsTargeting(t *testing.T) {
	meta := &EntityMetadata{
		LogicalName: "contact",
		LookupAttributes: []LookupAttribute{
			NewLookupAttribute("parentcustomerid", "Company Name", []string{"account", "contact"}),
			NewLookupAttribute("ownerid", "Owner", []string{"systemuser", "team"}),
			NewLookupAttribute("originatingleadid", "Originating Lead", []string{"lead"}),
		},
	}

	matches := meta.LookupsTargeting("account")
	require.Len(t, matches, 1)
	assert.Equal(t, "parentcustomerid", matches[0].LogicalName)

	assert.Nil(t, meta.LookupsTargeting("incident"))
}
