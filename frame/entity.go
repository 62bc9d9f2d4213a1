package frame

// EntityId identifies an entity across frames. Ids are handed out by a Registry
// starting at 1; the zero id never refers to an entity.
type EntityId uint64

// Entity is a stable handle carrying the property writes made since the entity
// was last flushed into a State.
type Entity struct {
	id      EntityId
	pending *Bag
}

func newEntity(id EntityId) *Entity {
	return &Entity{
		id:      id,
		pending: NewBag(),
	}
}

// Id returns the entity's identifier
func (e *Entity) Id() EntityId {
	return e.id
}

// Set records a property write that will be committed on the next flush
func (e *Entity) Set(key string, value any) *Entity {
	e.pending.Put(key, value)
	return e
}

// Pending returns the writes accumulated since the last flush.
// The returned bag must not be retained across a flush.
func (e *Entity) Pending() *Bag {
	return e.pending
}

// TakePendingAndReset hands over the pending bag and installs a fresh empty one,
// so every write is consumed by exactly one flush.
func (e *Entity) TakePendingAndReset() *Bag {
	pending := e.pending
	e.pending = NewBag()
	return pending
}
