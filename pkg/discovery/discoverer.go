// Package discovery decides which lookup column links a child entity to a
// parent. Strategies run in a fixed order, first success wins, and every
// result is cached; the pattern guess at the end of the chain means a valid
// pair essentially always yields a result.
package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/metadata"
	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// Discoverer runs the ordered strategy chain for (parent, child) pairs and
// exposes the data-driven inference entry points.
type Discoverer struct {
	strategies []Strategy
	resolver   *metadata.Resolver
	cache      *metadata.Cache
	logger     *zap.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithRelationshipAPI enables the relationship-descriptor strategy, inserted
// between the metadata strategies and the pattern fallback.
func WithRelationshipAPI(api RelationshipAPI) Option {
	return func(d *Discoverer) {
		descriptor := &descriptorStrategy{api: api, logger: d.logger}
		// Insert before the terminal pattern strategy.
		last := len(d.strategies) - 1
		d.strategies = append(d.strategies[:last:last], descriptor, d.strategies[last])
	}
}

// NewDiscoverer creates a Discoverer with the default chain: direct metadata
// lookup, reverse lookup, pattern guess.
func NewDiscoverer(resolver *metadata.Resolver, cache *metadata.Cache, logger *zap.Logger, opts ...Option) *Discoverer {
	direct := &directMetadataStrategy{resolver: resolver}
	d := &Discoverer{
		strategies: []Strategy{
			direct,
			&reverseLookupStrategy{direct: direct},
			&patternStrategy{},
		},
		resolver: resolver,
		cache:    cache,
		logger:   logger.Named("discoverer"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the best relationship for a (parent, child) pair, or nil
// only when both names are unusable. Results, including low-confidence
// guesses, are cached under the pair key; once cached there is no
// backtracking.
func (d *Discoverer) Discover(ctx context.Context, parentEntity, childEntity string) (*models.DiscoveredRelationship, error) {
	if !models.IsValidEntityName(parentEntity) || !models.IsValidEntityName(childEntity) {
		return nil, nil
	}

	if rel, ok := d.cache.Relationship(parentEntity, childEntity); ok {
		return rel, nil
	}

	for _, strategy := range d.strategies {
		rel, err := strategy.Discover(ctx, parentEntity, childEntity)
		if err != nil {
			// A failing strategy is a miss, not an abort; the chain ends in
			// a strategy that cannot fail.
			d.logger.Debug("strategy failed",
				zap.String("strategy", strategy.Name()),
				zap.String("parent", parentEntity),
				zap.String("child", childEntity),
				zap.Error(err))
			continue
		}
		if rel == nil {
			continue
		}

		rel.DiscoveredAt = time.Now().UTC()
		d.cache.PutRelationship(rel)

		d.logger.Info("relationship discovered",
			zap.String("strategy", strategy.Name()),
			zap.String("parent", rel.ParentEntity),
			zap.String("child", rel.ChildEntity),
			zap.String("lookup_column", rel.LookupColumn),
			zap.String("confidence", string(rel.Confidence)))
		return rel, nil
	}

	// Unreachable while the pattern strategy terminates the chain.
	return nil, nil
}

// DiscoveredAbove returns every cached relationship at or above the given
// confidence threshold.
func (d *Discoverer) DiscoveredAbove(threshold models.Confidence) []*models.DiscoveredRelationship {
	var out []*models.DiscoveredRelationship
	for _, rel := range d.cache.Relationships() {
		if rel.Confidence.AtLeast(threshold) {
			out = append(out, rel)
		}
	}
	return out
}
