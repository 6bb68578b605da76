package component

import "sync"

// Entry is a memoized resolution result.
type Entry struct {
	// Handle is set when Outcome is Found.
	Handle  *Handle
	Outcome Outcome
	// NeedsService marks a service-independent bind entry whose final answer depends
	// on the concrete type of the service object. The answer itself lives in the
	// cell keyed by that type.
	NeedsService bool
}

// Cell is a single-assignment slot. The first successful Claim wins; later claims
// observe the stored entry. A set cell is also the "already attempted" flag, so a
// confirmed absence is never resolved again.
type Cell struct {
	mu    sync.Mutex
	set   bool
	entry Entry
}

// Load returns the stored entry, if any.
func (c *Cell) Load() (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry, c.set
}

// Claim stores e unless the cell is already set. It returns the entry that is now
// stored and whether e was the one stored. Unavailable entries are transient and are
// never stored.
func (c *Cell) Claim(e Entry) (Entry, bool) {
	if e.Outcome == Unavailable {
		return e, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return c.entry, false
	}
	c.entry = e
	c.set = true
	return e, true
}
