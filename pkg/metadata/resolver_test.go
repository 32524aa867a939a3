package metadata

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/dataverse"
)

// mockMetadataAPI is a MetadataAPI with per-method call counters so tests can
// assert that invalid input never reaches the network.
type mockMetadataAPI struct {
	mu sync.Mutex

	definitions map[string]*dataverse.EntityDefinition
	attributes  map[string][]dataverse.AttributeDefinition
	targets     map[string][]string // keyed by entity+"."+attribute
	targetsErr  map[string]error

	definitionCalls int
	attributeCalls  int
	targetCalls     int
}

func label(text string) dataverse.DisplayNameLabel {
	return dataverse.DisplayNameLabel{UserLocalizedLabel: &dataverse.LocalizedLabel{Label: text}}
}

func newMockAPI() *mockMetadataAPI {
	return &mockMetadataAPI{
		definitions: map[string]*dataverse.EntityDefinition{
			"contact": {
				LogicalName:        "contact",
				DisplayName:        label("Contact"),
				EntitySetName:      "contacts",
				PrimaryIDAttribute: "contactid",
			},
			"account": {
				LogicalName:        "account",
				DisplayName:        label("Account"),
				EntitySetName:      "accounts",
				PrimaryIDAttribute: "accountid",
			},
		},
		attributes: map[string][]dataverse.AttributeDefinition{
			"contact": {
				{LogicalName: "parentcustomerid", DisplayName: label("Company Name")},
				{LogicalName: "contactid", DisplayName: label("Contact")}, // metadata glitch: PK listed as lookup
			},
			"account": {
				{LogicalName: "primarycontactid", DisplayName: label("Primary Contact")},
			},
		},
		targets: map[string][]string{
			"contact.parentcustomerid": {"account", "contact"},
			"account.primarycontactid": {"contact"},
		},
		targetsErr: map[string]error{},
	}
}

func (m *mockMetadataAPI) GetEntityDefinition(_ context.Context, name string) (*dataverse.EntityDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitionCalls++
	return m.definitions[name], nil
}

func (m *mockMetadataAPI) GetLookupAttributes(_ context.Context, name string) ([]dataverse.AttributeDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attributeCalls++
	return m.attributes[name], nil
}

func (m *mockMetadataAPI) GetLookupTargets(_ context.Context, entity, attr string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targetCalls++
	key := entity + "." + attr
	if err := m.targetsErr[key]; err != nil {
		return nil, err
	}
	return m.targets[key], nil
}

func (m *mockMetadataAPI) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.definitionCalls + m.attributeCalls + m.targetCalls
}

func newTestResolver(api MetadataAPI) (*Resolver, *Cache) {
	cache := NewCache()
	return NewResolver(api, cache, 4, zap.NewNop()), cache
}

func TestResolveInvalidNamesShortCircuit(t *testing.T) {
	api := newMockAPI()
	r, _ := newTestResolver(api)

	for _, name := range []string{"", "   ", "unknown", "Unknown"} {
		meta, err := r.Resolve(context.Background(), name)
		require.NoError(t, err)
		assert.Nil(t, meta)
	}
	assert.Equal(t, 0, api.totalCalls(), "invalid names must not issue network calls")
}

func TestResolveBuildsMetadata(t *testing.T) {
	api := newMockAPI()
	r, _ := newTestResolver(api)

	meta, err := r.Resolve(context.Background(), "contact")
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, "contacts", meta.EntitySetName)
	assert.Equal(t, "contactid", meta.PrimaryIDAttribute)

	require.Len(t, meta.LookupAttributes, 1, "the primary key must never appear as a lookup")
	attr := meta.LookupAttributes[0]
	assert.Equal(t, "parentcustomerid", attr.LogicalName)
	assert.Equal(t, "_parentcustomerid_value", attr.LookupFieldName)
	assert.Equal(t, []string{"account", "contact"}, attr.Targets)
}

func TestResolveCachesResult(t *testing.T) {
	api := newMockAPI()
	r, _ := newTestResolver(api)

	first, err := r.Resolve(context.Background(), "contact")
	require.NoError(t, err)
	callsAfterFirst := api.totalCalls()

	second, err := r.Resolve(context.Background(), "contact")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, callsAfterFirst, api.totalCalls(), "cache hit must not touch the network")
}

func TestResolveUnknownEntityIsAbsenceNotError(t *testing.T) {
	api := newMockAPI()
	r, _ := newTestResolver(api)

	meta, err := r.Resolve(context.Background(), "widget")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestResolveToleratesTargetFailure(t *testing.T) {
	api := newMockAPI()
	api.targetsErr["contact.parentcustomerid"] = errors.New("metadata endpoint unavailable")
	r, _ := newTestResolver(api)

	meta, err := r.Resolve(context.Background(), "contact")
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.Len(t, meta.LookupAttributes, 1)
	assert.Empty(t, meta.LookupAttributes[0].Targets, "empty targets is a valid state")
}

func TestResolveManyMixesCachedAndFresh(t *testing.T) {
	api := newMockAPI()
	r, _ := newTestResolver(api)

	_, err := r.Resolve(context.Background(), "account")
	require.NoError(t, err)
	callsAfterAccount := api.totalCalls()

	results, err := r.ResolveMany(context.Background(), []string{"account", "contact", "widget", "unknown", "contact"})
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Contains(t, results, "account")
	assert.Contains(t, results, "contact")

	// account came from cache; only contact and the missing widget cost
	// definition calls (1 from the warm-up plus 2 fresh).
	assert.Greater(t, api.totalCalls(), callsAfterAccount)
	assert.Equal(t, 3, api.definitionCalls, "account must not be re-fetched")
}
