package frame

import "go.uber.org/multierr"

// Commands provides a buffer for deferred timeline operations that are executed at the end of a turn.
// Systems queue spawns, deletes and commits here so that every system of a turn sees the same registry.
type Commands struct {
	spawns       []spawnCommand
	deletes      []EntityId
	commits      []commitCommand
	worldCommits []FrameTime
	defers       []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	props map[string]any
}

type commitCommand struct {
	t     FrameTime
	force bool
	ids   []EntityId
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues the creation of an entity whose pending bag starts with props.
func (c *Commands) Spawn(props map[string]any) {
	c.spawns = append(c.spawns, spawnCommand{props: props})
}

// Delete queues an entity removal. Pending writes of the entity are discarded.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

// Commit queues a flush of the given entities into the state at t.
func (c *Commands) Commit(t FrameTime, force bool, ids ...EntityId) {
	c.commits = append(c.commits, commitCommand{
		t:     t,
		force: force,
		ids:   ids,
	})
}

// CommitWorld queues a full-world commit at t.
func (c *Commands) CommitWorld(t FrameTime) {
	c.worldCommits = append(c.worldCommits, t)
}

// Flush applies all commands to the provided timeline, reseting the buffer state.
// Every command runs even if an earlier one fails; the failures are combined.
func (c *Commands) Flush(tl *Timeline) error {
	registry := tl.Registry()
	deletedEntities := make(map[EntityId]bool)

	for _, id := range c.deletes {
		registry.Remove(id)
		deletedEntities[id] = true
	}

	for _, cmd := range c.spawns {
		entity := registry.Create()
		for key, value := range cmd.props {
			entity.Set(key, value)
		}
	}

	var err error
	for _, cmd := range c.commits {
		ids := make([]EntityId, 0, len(cmd.ids))
		for _, id := range cmd.ids {
			if !deletedEntities[id] {
				ids = append(ids, id)
			}
		}
		err = multierr.Append(err, tl.CommitEntity(cmd.t, cmd.force, ids...))
	}

	for _, t := range c.worldCommits {
		err = multierr.Append(err, tl.CommitWorld(t))
	}

	for _, df := range c.defers {
		df.fn()
	}

	c.spawns = c.spawns[:0]
	c.deletes = c.deletes[:0]
	c.commits = c.commits[:0]
	c.worldCommits = c.worldCommits[:0]
	c.defers = c.defers[:0]
	return err
}
