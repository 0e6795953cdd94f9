package feed

import (
	"log"
	"sync"
)

const defaultQueueDepth = 256

// Funnel fans updates from any number of connector goroutines into one
// consumer goroutine per match. The engine behind each match therefore sees
// strictly ordered, single-writer delivery, which the probability update
// requires.
type Funnel struct {
	mu      sync.Mutex
	queues  map[string]chan Update
	depth   int
	handler Handler
	wg      sync.WaitGroup
	closed  bool
}

// NewFunnel creates a funnel delivering to the given handler. depth <= 0
// uses the default per-match queue depth.
func NewFunnel(handler Handler, depth int) *Funnel {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	return &Funnel{
		queues:  make(map[string]chan Update),
		depth:   depth,
		handler: handler,
	}
}

// Dispatch enqueues an update on its match's queue, creating the queue and
// its consumer on first sight of the match. A full queue drops the update
// with a log line rather than blocking the connector.
func (f *Funnel) Dispatch(u Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	q, ok := f.queues[u.MatchID]
	if !ok {
		q = make(chan Update, f.depth)
		f.queues[u.MatchID] = q
		f.wg.Add(1)
		go f.consume(u.MatchID, q)
	}
	// The send stays under the mutex so CloseMatch cannot close q between
	// the lookup and the send. It never blocks: a full queue drops.
	select {
	case q <- u:
	default:
		log.Printf("[FUNNEL] queue full for match %s, dropping %s update", u.MatchID, u.Kind)
	}
}

func (f *Funnel) consume(matchID string, q chan Update) {
	defer f.wg.Done()
	for u := range q {
		f.handler(u)
	}
	log.Printf("[FUNNEL] consumer for match %s stopped", matchID)
}

// CloseMatch drains and removes one match's queue, e.g. after its series
// ends.
func (f *Funnel) CloseMatch(matchID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.queues[matchID]; ok {
		delete(f.queues, matchID)
		close(q)
	}
}

// Depth reports the current backlog for a match, for metrics.
func (f *Funnel) Depth(matchID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.queues[matchID]; ok {
		return len(q)
	}
	return 0
}

// Close shuts down all match queues and waits for consumers to finish.
func (f *Funnel) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for _, q := range f.queues {
		close(q)
	}
	f.queues = make(map[string]chan Update)
	f.mu.Unlock()

	// Wait outside the lock: consumers call back into Depth via the handler.
	f.wg.Wait()
}
