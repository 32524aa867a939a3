// Package metadata resolves and caches entity metadata from the Web API.
//
// Cache lifetime is the process: within one session schema is assumed stable,
// so there is no TTL and no background expiry. An explicit Clear exists for
// when the user suspects staleness, e.g. after switching target environments.
package metadata

import (
	"sync"
	"time"

	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

type entityEntry struct {
	meta     *models.EntityMetadata
	cachedAt time.Time
}

// Cache holds resolved entity metadata, discovered relationships keyed by
// entity pair, and promoted mappings keyed by name. Duplicate resolutions for
// the same uncached key are tolerated: last writer wins.
type Cache struct {
	mu            sync.RWMutex
	entities      map[string]entityEntry
	relationships map[string]*models.DiscoveredRelationship
	mappings      map[string]models.RelationshipMapping
}

// NewCache creates an empty metadata cache.
func NewCache() *Cache {
	return &Cache{
		entities:      make(map[string]entityEntry),
		relationships: make(map[string]*models.DiscoveredRelationship),
		mappings:      make(map[string]models.RelationshipMapping),
	}
}

// Entity returns cached metadata for an entity, if present.
func (c *Cache) Entity(logicalName string) (*models.EntityMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entities[logicalName]
	if !ok {
		return nil, false
	}
	return entry.meta, true
}

// PutEntity stores entity metadata.
func (c *Cache) PutEntity(meta *models.EntityMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities[meta.LogicalName] = entityEntry{meta: meta, cachedAt: time.Now()}
}

// Relationship returns the cached relationship for a (parent, child) pair.
func (c *Cache) Relationship(parentEntity, childEntity string) (*models.DiscoveredRelationship, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rel, ok := c.relationships[models.PairKey(parentEntity, childEntity)]
	return rel, ok
}

// PutRelationship stores a discovered relationship under its pair key. Even
// low-confidence guesses are cached: they are cheaper to reuse than to
// regenerate, and a later promotion may replace them.
func (c *Cache) PutRelationship(rel *models.DiscoveredRelationship) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relationships[rel.Key()] = rel
}

// Relationships returns a snapshot of every cached relationship.
func (c *Cache) Relationships() []*models.DiscoveredRelationship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rels := make([]*models.DiscoveredRelationship, 0, len(c.relationships))
	for _, rel := range c.relationships {
		rels = append(rels, rel)
	}
	return rels
}

// Mapping returns a promoted mapping by name.
func (c *Cache) Mapping(name string) (models.RelationshipMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.mappings[name]
	return m, ok
}

// PutMapping stores a named mapping, replacing any previous one.
func (c *Cache) PutMapping(m models.RelationshipMapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mappings[m.Name] = m
}

// PromoteMapping names a discovered relationship and stores it in the flat
// mapping table.
func (c *Cache) PromoteMapping(name string, rel *models.DiscoveredRelationship) models.RelationshipMapping {
	m := models.NewMapping(name, rel)
	c.PutMapping(m)
	return m
}

// Mappings returns a snapshot of every promoted mapping.
func (c *Cache) Mappings() []models.RelationshipMapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.RelationshipMapping, 0, len(c.mappings))
	for _, m := range c.mappings {
		out = append(out, m)
	}
	return out
}

// Clear drops everything: entity metadata, relationships, and mappings.
// Immediately visible to subsequent calls.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = make(map[string]entityEntry)
	c.relationships = make(map[string]*models.DiscoveredRelationship)
	c.mappings = make(map[string]models.RelationshipMapping)
}

// ClearRelationships drops discovered relationships but keeps entity
// metadata and promoted mappings.
func (c *Cache) ClearRelationships() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relationships = make(map[string]*models.DiscoveredRelationship)
}
