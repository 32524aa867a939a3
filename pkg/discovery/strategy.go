package discovery

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/dataverse"
	"github.com/gridlink-io/gridlink-engine/pkg/metadata"
	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// Strategy is one way of finding the lookup column linking a child entity to
// a parent. A (nil, nil) return means the strategy found nothing and the
// chain should move on; an error aborts nothing either — the driver treats it
// the same as a miss and logs it.
type Strategy interface {
	Name() string
	Discover(ctx context.Context, parentEntity, childEntity string) (*models.DiscoveredRelationship, error)
}

// ----------------------------------------------------------------------------
// Direct metadata lookup
// ----------------------------------------------------------------------------

// directMetadataStrategy resolves the child's metadata and looks for lookup
// attributes targeting the parent. One match is high confidence; several
// matches cost an ambiguity penalty.
type directMetadataStrategy struct {
	resolver *metadata.Resolver
}

func (s *directMetadataStrategy) Name() string { return "direct-metadata" }

func (s *directMetadataStrategy) Discover(ctx context.Context, parentEntity, childEntity string) (*models.DiscoveredRelationship, error) {
	meta, err := s.resolver.Resolve(ctx, childEntity)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}

	candidates := meta.LookupsTargeting(parentEntity)
	if len(candidates) == 0 {
		return nil, nil
	}

	confidence := models.ConfidenceHigh
	chosen := candidates[0]
	if len(candidates) > 1 {
		chosen = preferCandidate(candidates, parentEntity)
		confidence = models.ConfidenceMedium
	}

	return &models.DiscoveredRelationship{
		ParentEntity: parentEntity,
		ChildEntity:  childEntity,
		LookupColumn: chosen.LookupFieldName,
		DisplayName:  chosen.DisplayName,
		Confidence:   confidence,
		Source:       models.SourceMetadata,
	}, nil
}

// preferCandidate breaks ambiguity among several matching lookups: an
// attribute whose name contains the parent entity name, "parent", or
// "primary" wins; otherwise the first candidate stands.
func preferCandidate(candidates []models.LookupAttribute, parentEntity string) models.LookupAttribute {
	hints := []string{strings.ToLower(parentEntity), "parent", "primary"}
	for _, hint := range hints {
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.LogicalName), hint) {
				return c
			}
		}
	}
	return candidates[0]
}

// ----------------------------------------------------------------------------
// Reverse lookup
// ----------------------------------------------------------------------------

// reverseLookupStrategy re-runs the direct search with the roles swapped, to
// catch callers that supplied parent and child backwards. The returned
// relationship carries the corrected orientation.
type reverseLookupStrategy struct {
	direct *directMetadataStrategy
}

func (s *reverseLookupStrategy) Name() string { return "reverse-lookup" }

func (s *reverseLookupStrategy) Discover(ctx context.Context, parentEntity, childEntity string) (*models.DiscoveredRelationship, error) {
	return s.direct.Discover(ctx, childEntity, parentEntity)
}

// ----------------------------------------------------------------------------
// Relationship descriptors
// ----------------------------------------------------------------------------

// RelationshipAPI is the slice of the Web API client the descriptor strategy
// needs.
type RelationshipAPI interface {
	GetManyToOneRelationships(ctx context.Context, logicalName string) ([]dataverse.RelationshipDescriptor, error)
}

// descriptorStrategy consults the child's N:1 relationship descriptors, the
// alternate metadata source, when attribute-level metadata yields nothing.
type descriptorStrategy struct {
	api    RelationshipAPI
	logger *zap.Logger
}

func (s *descriptorStrategy) Name() string { return "relationship-descriptors" }

func (s *descriptorStrategy) Discover(ctx context.Context, parentEntity, childEntity string) (*models.DiscoveredRelationship, error) {
	if s.api == nil {
		return nil, nil
	}

	descriptors, err := s.api.GetManyToOneRelationships(ctx, childEntity)
	if err != nil {
		return nil, err
	}

	for _, d := range descriptors {
		if strings.EqualFold(d.ReferencedEntity, parentEntity) && d.ReferencingAttribute != "" {
			return &models.DiscoveredRelationship{
				ParentEntity: parentEntity,
				ChildEntity:  childEntity,
				LookupColumn: models.LookupFieldName(d.ReferencingAttribute),
				DisplayName:  d.SchemaName,
				Confidence:   models.ConfidenceHigh,
				Source:       models.SourceMetadata,
			}, nil
		}
	}
	return nil, nil
}

// ----------------------------------------------------------------------------
// Pattern guess
// ----------------------------------------------------------------------------

// patternStrategy synthesizes a lookup column from naming conventions. It
// never fails: it is the terminal fallback that guarantees callers always
// receive something usable, with the low confidence signaling it must not be
// trusted blindly.
type patternStrategy struct{}

func (s *patternStrategy) Name() string { return "pattern" }

// patternCandidates lists the conventions in preference order. The first
// candidate is returned; the rest exist so the order is explicit and
// testable.
func patternCandidates(parentEntity string) []string {
	lower := strings.ToLower(parentEntity)
	candidates := []string{
		models.LookupFieldName(parentEntity + "id"),
		models.LookupFieldName("parent" + parentEntity + "id"),
		models.LookupFieldName("primary" + parentEntity + "id"),
		models.LookupFieldName(parentEntity),
	}
	if lower != parentEntity {
		candidates = append(candidates, models.LookupFieldName(lower+"id"))
	}
	return candidates
}

func (s *patternStrategy) Discover(_ context.Context, parentEntity, childEntity string) (*models.DiscoveredRelationship, error) {
	return &models.DiscoveredRelationship{
		ParentEntity: parentEntity,
		ChildEntity:  childEntity,
		LookupColumn: patternCandidates(parentEntity)[0],
		Confidence:   models.ConfidenceLow,
		Source:       models.SourcePattern,
	}, nil
}
