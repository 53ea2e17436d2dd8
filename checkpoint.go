package vcr

import (
	"fmt"
	"sync"
)

// Checkpoints manages named snapshots of a Store.
//
// Checkpoints form a stack: restoring one brings the store back to the state
// it had when the checkpoint was created and discards that checkpoint along
// with every checkpoint created after it.
type Checkpoints struct {
	store *Store

	mu    sync.Mutex
	stack []checkpoint
}

type checkpoint struct {
	name  string
	state storeState
}

// NewCheckpoints returns a checkpoint manager for store.
func NewCheckpoints(store *Store) *Checkpoints {
	return &Checkpoints{store: store}
}

// Create snapshots the current store state under name. The name must not
// belong to a live checkpoint.
func (c *Checkpoints) Create(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(name) >= 0 {
		return &ConfigError{
			Msg:     fmt.Sprintf("checkpoint %q already exists", name),
			Invalid: []string{name},
			Err:     ErrDuplicateCheckpoint,
		}
	}
	c.stack = append(c.stack, checkpoint{name: name, state: c.store.snapshot()})
	return nil
}

// Restore replaces the store state with the snapshot taken for name. On an
// unknown name the store is left untouched.
func (c *Checkpoints) Restore(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(name)
	if i < 0 {
		return &ConfigError{
			Msg:     fmt.Sprintf("no checkpoint named %q", name),
			Invalid: []string{name},
			Err:     ErrUnknownCheckpoint,
		}
	}
	c.store.restore(c.stack[i].state)
	c.stack = c.stack[:i]
	return nil
}

// Names returns the live checkpoint names, oldest first.
func (c *Checkpoints) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.stack))
	for i, cp := range c.stack {
		names[i] = cp.name
	}
	return names
}

func (c *Checkpoints) indexOf(name string) int {
	for i, cp := range c.stack {
		if cp.name == name {
			return i
		}
	}
	return -1
}
