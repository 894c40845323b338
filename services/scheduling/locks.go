package scheduling

import "sync"

// tutorLocks serializes check-then-write sequences per tutor. The storage
// claim guard is the final arbiter; this lock keeps the common path from
// hitting it.
type tutorLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (tl *tutorLocks) lock(tutorID string) func() {
	tl.mu.Lock()
	if tl.locks == nil {
		tl.locks = make(map[string]*sync.Mutex)
	}
	m, ok := tl.locks[tutorID]
	if !ok {
		m = &sync.Mutex{}
		tl.locks[tutorID] = m
	}
	tl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
