package frame

import (
	"slices"

	"github.com/kamstrup/intmap"
)

// Registry owns the entity handles of a simulation. Entities are kept in
// creation order so that implicit commits visit them deterministically.
type Registry struct {
	entities *intmap.Map[EntityId, *Entity]
	order    []EntityId
	nextId   EntityId
}

// NewRegistry creates an empty entity registry
func NewRegistry() *Registry {
	return &Registry{
		entities: intmap.New[EntityId, *Entity](256),
		order:    make([]EntityId, 0, 256),
		nextId:   1,
	}
}

// Create allocates a new entity with an empty pending bag
func (r *Registry) Create() *Entity {
	entity := newEntity(r.nextId)
	r.nextId++

	r.entities.Put(entity.id, entity)
	r.order = append(r.order, entity.id)
	return entity
}

// Get returns the entity registered under id
func (r *Registry) Get(id EntityId) (*Entity, bool) {
	return r.entities.Get(id)
}

// Has reports whether id refers to a registered entity
func (r *Registry) Has(id EntityId) bool {
	return r.entities.Has(id)
}

// Remove unregisters an entity. States that already reference the id keep their bags.
func (r *Registry) Remove(id EntityId) bool {
	if !r.entities.Del(id) {
		return false
	}
	if idx := slices.Index(r.order, id); idx >= 0 {
		r.order = slices.Delete(r.order, idx, idx+1)
	}
	return true
}

// Len returns the number of registered entities
func (r *Registry) Len() int {
	return r.entities.Len()
}

// Ids returns the registered entity ids in creation order
func (r *Registry) Ids() []EntityId {
	return slices.Clone(r.order)
}

// Entities returns the registered entities in creation order
func (r *Registry) Entities() []*Entity {
	entities := make([]*Entity, 0, len(r.order))
	for _, id := range r.order {
		if entity, ok := r.entities.Get(id); ok {
			entities = append(entities, entity)
		}
	}
	return entities
}
