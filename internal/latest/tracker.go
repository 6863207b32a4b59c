// Package latest tags dependent requests with version tickets so that a slower,
// older response never overwrites the result of a newer request for the same key.
package latest

import "sync"

type Tracker struct {
	mu       sync.Mutex
	seq      uint64
	versions map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{versions: make(map[string]uint64)}
}

// Ticket identifies one request for a key.
type Ticket struct {
	t       *Tracker
	key     string
	version uint64
}

// Begin issues a ticket that supersedes every earlier ticket for key.
func (t *Tracker) Begin(key string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.versions[key] = t.seq
	return Ticket{t: t, key: key, version: t.seq}
}

// Current reports whether no newer ticket has been issued for the same key.
func (tk Ticket) Current() bool {
	if tk.t == nil {
		return false
	}
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	return tk.t.versions[tk.key] == tk.version
}

// Forget drops the key once its owner is gone. Outstanding tickets become stale.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	delete(t.versions, key)
	t.mu.Unlock()
}
