package crawler

import "sync"

// State tracks the per-crawl visited/processed/failed/blocked sets named in
// §3's data model. Every method is safe for concurrent use: the source's
// single-threaded cooperative model (one mutable dict per set, no locking
// needed under one event loop) is translated here into a single mutex
// guarding all four sets, since Go workers actually run on separate
// goroutines.
type State struct {
	mu              sync.Mutex
	visited         map[string]struct{}
	processed       map[string]struct{}
	failed          map[string]string
	blockedByRobots map[string]struct{}
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		visited:         make(map[string]struct{}),
		processed:       make(map[string]struct{}),
		failed:          make(map[string]string),
		blockedByRobots: make(map[string]struct{}),
	}
}

// MarkVisited inserts url into the visited set and reports whether it was
// newly inserted. Two workers racing on the same URL popped twice cannot
// both proceed: only the first caller gets true.
func (s *State) MarkVisited(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visited[url]; ok {
		return false
	}
	s.visited[url] = struct{}{}
	return true
}

// VisitedCount returns the current size of the visited set.
func (s *State) VisitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// RecordProcessed marks url as successfully fetched and parsed.
func (s *State) RecordProcessed(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[url] = struct{}{}
}

// RecordFailed marks url as permanently failed with reason. A URL never
// appears in both processed and failed, per §8 invariant 2.
func (s *State) RecordFailed(url, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[url] = reason
}

// RecordBlockedByRobots marks url as denied by robots policy.
func (s *State) RecordBlockedByRobots(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockedByRobots[url] = struct{}{}
}

// Processed returns a snapshot of every successfully processed URL.
func (s *State) Processed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.processed))
	for u := range s.processed {
		out = append(out, u)
	}
	return out
}

// Failed returns a snapshot of url -> failure reason.
func (s *State) Failed() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.failed))
	for u, reason := range s.failed {
		out[u] = reason
	}
	return out
}

// BlockedByRobots returns a snapshot of every URL denied by robots policy.
func (s *State) BlockedByRobots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.blockedByRobots))
	for u := range s.blockedByRobots {
		out = append(out, u)
	}
	return out
}
