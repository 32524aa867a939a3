package metadata

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gridlink-io/gridlink-engine/pkg/dataverse"
	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// MetadataAPI is the slice of the Web API client the resolver needs. The
// concrete implementation is *dataverse.Client; tests supply mocks with call
// counters.
type MetadataAPI interface {
	GetEntityDefinition(ctx context.Context, logicalName string) (*dataverse.EntityDefinition, error)
	GetLookupAttributes(ctx context.Context, logicalName string) ([]dataverse.AttributeDefinition, error)
	GetLookupTargets(ctx context.Context, entityName, attributeName string) ([]string, error)
}

// Resolver translates entity logical names into normalized EntityMetadata,
// resolving lookup attribute targets and writing every successful resolution
// through to the cache.
type Resolver struct {
	api         MetadataAPI
	cache       *Cache
	maxParallel int
	logger      *zap.Logger
}

// NewResolver creates a Resolver. maxParallel bounds the fan-out of
// ResolveMany; values below 1 are treated as 1.
func NewResolver(api MetadataAPI, cache *Cache, maxParallel int, logger *zap.Logger) *Resolver {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Resolver{
		api:         api,
		cache:       cache,
		maxParallel: maxParallel,
		logger:      logger.Named("resolver"),
	}
}

// Resolve returns the metadata for one entity, or (nil, nil) when the name is
// invalid or the entity does not exist. Invalid names (empty, "unknown",
// whitespace) short-circuit before any network call: they are what
// uninitialized form state produces, and burning throttled calls on them
// starves real work.
func (r *Resolver) Resolve(ctx context.Context, entityName string) (*models.EntityMetadata, error) {
	if !models.IsValidEntityName(entityName) {
		return nil, nil
	}

	if meta, ok := r.cache.Entity(entityName); ok {
		return meta, nil
	}

	def, err := r.api.GetEntityDefinition(ctx, entityName)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, nil
	}

	attrs, err := r.api.GetLookupAttributes(ctx, entityName)
	if err != nil {
		return nil, err
	}

	meta := &models.EntityMetadata{
		LogicalName:          def.LogicalName,
		DisplayName:          def.DisplayName.Text(),
		EntitySetName:        def.EntitySetName,
		PrimaryIDAttribute:   def.PrimaryIDAttribute,
		PrimaryNameAttribute: def.PrimaryNameAttribute,
	}

	for _, attr := range attrs {
		// The entity's own primary key is never one of its lookup
		// attributes, whatever the attribute listing claims.
		if attr.LogicalName == def.PrimaryIDAttribute {
			continue
		}

		targets, targetErr := r.api.GetLookupTargets(ctx, entityName, attr.LogicalName)
		if targetErr != nil {
			// Incomplete metadata is a valid state; keep the attribute with
			// empty targets rather than failing the whole resolution.
			r.logger.Debug("lookup target resolution failed",
				zap.String("entity", entityName),
				zap.String("attribute", attr.LogicalName),
				zap.Error(targetErr))
			targets = nil
		}

		meta.LookupAttributes = append(meta.LookupAttributes,
			models.NewLookupAttribute(attr.LogicalName, attr.DisplayName.Text(), targets))
	}

	r.cache.PutEntity(meta)
	return meta, nil
}

// ResolveMany resolves several entities at once, returning the union of
// cached and freshly resolved entries. A failing entity is simply absent from
// the result map; logging the miss is the caller's concern. Fan-out is
// bounded by maxParallel on top of the client's own throttle.
func (r *Resolver) ResolveMany(ctx context.Context, entityNames []string) (map[string]*models.EntityMetadata, error) {
	results := make(map[string]*models.EntityMetadata)

	var toResolve []string
	seen := make(map[string]bool)
	for _, name := range entityNames {
		if !models.IsValidEntityName(name) || seen[name] {
			continue
		}
		seen[name] = true

		if meta, ok := r.cache.Entity(name); ok {
			results[name] = meta
			continue
		}
		toResolve = append(toResolve, name)
	}

	if len(toResolve) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)

	for _, name := range toResolve {
		name := name
		g.Go(func() error {
			meta, err := r.Resolve(gctx, name)
			if err != nil || meta == nil {
				// Absent from the result map; never fails the batch.
				return nil
			}
			mu.Lock()
			results[name] = meta
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
