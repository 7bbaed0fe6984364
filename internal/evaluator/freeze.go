package evaluator

import (
	"sync"
	"time"

	"github.com/funvibe/automa/internal/value"
)

// FreezeID identifies one stateful call site in the source: the byte
// offset of the call plus the index of the frozen argument. The key is
// carried explicitly by the calling frame, so replacing the source text
// (and with it the compiled Code and its freeze map) can never leave
// stale entries behind.
type FreezeID struct {
	Offset int
	Arg    int
}

// FrozenResult caches a time-dependent function result until a scheduled
// re-evaluation time.
type FrozenResult struct {
	Result value.Value
	Until  time.Time // zero: frozen forever (until explicitly unfrozen)
}

// Frozen reports whether the cached result is still in force at the
// given time.
func (f *FrozenResult) Frozen(now time.Time) bool {
	return f.Until.IsZero() || f.Until.After(now)
}

type freezeStore struct {
	mu       sync.Mutex
	frozen   map[FreezeID]*FrozenResult
	nextEval time.Time // earliest wanted re-evaluation of the owning code
}

func (s *freezeStore) get(id FreezeID) *FrozenResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen == nil {
		return nil
	}
	return s.frozen[id]
}

func (s *freezeStore) set(id FreezeID, fr *FrozenResult) {
	s.mu.Lock()
	if s.frozen == nil {
		s.frozen = make(map[FreezeID]*FrozenResult)
	}
	s.frozen[id] = fr
	s.mu.Unlock()
}

func (s *freezeStore) unfreeze(id FreezeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.frozen[id]; ok {
		delete(s.frozen, id)
		return true
	}
	return false
}

// scheduleEvalNotLaterThan requests a re-evaluation of the owning code
// at the given time, keeping the earliest of all requests.
func (s *freezeStore) scheduleEvalNotLaterThan(when time.Time) {
	s.mu.Lock()
	if s.nextEval.IsZero() || when.Before(s.nextEval) {
		s.nextEval = when
	}
	s.mu.Unlock()
}

// takeNextEval returns and clears the pending re-evaluation request,
// folding in the expiry times of results still frozen: a result thawing
// is always a reason to re-evaluate the owning code.
func (s *freezeStore) takeNextEval() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.nextEval
	s.nextEval = time.Time{}
	now := time.Now()
	for _, fr := range s.frozen {
		if !fr.Until.IsZero() && fr.Until.After(now) && (next.IsZero() || fr.Until.Before(next)) {
			next = fr.Until
		}
	}
	return next
}
