package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildFilterLeavesGUIDUnquoted(t *testing.T) {
	got := BuildFilter("_parentcustomerid_value", "f2869fea-68cc-ec11-a7b5-000d3a65a077")
	assert.Equal(t, "_parentcustomerid_value eq f2869fea-68cc-ec11-a7b5-000d3a65a077", got)
}

func TestCollection(t *testing.T) {
	tests := []struct {
		entity   string
		expected string
	}{
		{"account", "accounts"},
		{"opportunity", "opportunities"},
		{"accounts", "accounts"}, // already plural
		{"new_process", "new_processes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Collection(tt.entity), "entity %q", tt.entity)
	}
}

func TestBuildListQuery(t *testing.T) {
	s := NewSynthesizer(false, zap.NewNop())

	q, err := s.BuildListQuery("contact", Options{
		Select: []string{"fullname", "_parentcustomerid_value"},
		Filter: BuildFilter("_parentcustomerid_value", "f2869fea-68cc-ec11-a7b5-000d3a65a077"),
		Top:    10,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"/contacts?$select=fullname,_parentcustomerid_value&$filter=_parentcustomerid_value eq f2869fea-68cc-ec11-a7b5-000d3a65a077&$top=10",
		q)
}

func TestBuildListQueryOmitsTopWhenUnset(t *testing.T) {
	s := NewSynthesizer(false, zap.NewNop())

	// Top == 0 means "no limit", not "default limit".
	q, err := s.BuildListQuery("account", Options{})
	require.NoError(t, err)
	assert.Equal(t, "/accounts", q)
	assert.NotContains(t, q, "$top")
}

func TestBuildListQueryRejectsInvalidEntity(t *testing.T) {
	s := NewSynthesizer(false, zap.NewNop())

	for _, name := range []string{"", "   ", "unknown"} {
		_, err := s.BuildListQuery(name, Options{})
		assert.Error(t, err)
	}
}

func TestViewIDValidation(t *testing.T) {
	remote := NewSynthesizer(false, zap.NewNop())
	local := NewSynthesizer(true, zap.NewNop())

	valid := "a0e7f1d2-68cc-ec11-a7b5-000d3a65a077"

	assert.True(t, remote.IsValidViewID(valid))
	assert.False(t, remote.IsValidViewID("00000000-0000-0000-0000-000000000000"), "zero GUID is never a view")
	assert.False(t, remote.IsValidViewID("not-a-guid"))
	assert.False(t, local.IsValidViewID(valid), "local context rejects all view ids")
}

func TestBuildListQueryDropsInvalidView(t *testing.T) {
	remote := NewSynthesizer(false, zap.NewNop())
	local := NewSynthesizer(true, zap.NewNop())
	valid := "a0e7f1d2-68cc-ec11-a7b5-000d3a65a077"

	q, err := remote.BuildListQuery("account", Options{ViewID: valid})
	require.NoError(t, err)
	assert.Contains(t, q, "savedQuery="+valid)

	q, err = remote.BuildListQuery("account", Options{ViewID: "00000000-0000-0000-0000-000000000000"})
	require.NoError(t, err)
	assert.NotContains(t, q, "savedQuery")

	q, err = local.BuildListQuery("account", Options{ViewID: valid})
	require.NoError(t, err)
	assert.NotContains(t, q, "savedQuery")
}

func TestValidateQueryAcceptsSynthesizedQueries(t *testing.T) {
	s := NewSynthesizer(false, zap.NewNop())
	q, err := s.BuildListQuery("contact", Options{
		Filter: BuildFilter("_parentcustomerid_value", "f2869fea-68cc-ec11-a7b5-000d3a65a077"),
		Top:    25,
	})
	require.NoError(t, err)

	result := ValidateQuery(q)
	assert.True(t, result.IsValid, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestValidateQueryFlagsProblems(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "", "query is empty"},
		{"missing slash", "accounts?$top=5", "must start with '/'"},
		{"missing collection", "/", "collection name is missing"},
		{"whitespace in path", "/my accounts", "whitespace"},
		{"bad top", "/accounts?$top=abc", "$top"},
		{"negative top", "/accounts?$top=-1", "$top"},
		{"zero view id", "/accounts?savedQuery=00000000-0000-0000-0000-000000000000", "savedQuery"},
		{"quoted guid", "/contacts?$filter=_parentcustomerid_value eq 'f2869fea-68cc-ec11-a7b5-000d3a65a077'", "must not be quoted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateQuery(tt.query)
			require.False(t, result.IsValid)
			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "expected an error containing %q, got %v", tt.want, result.Errors)
		})
	}
}
