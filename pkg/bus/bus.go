// Package bus implements the in-process publish/subscribe fabric that
// bridges background workers to per-task event streams: buffered backlog
// replay for late or reconnecting subscribers, per-subscriber flow
// control with lag markers on overflow, and grace-period teardown after
// a task's terminal event.
//
// Grounded on the connection/subscription-map and snapshot-then-broadcast
// shape of a Postgres-LISTEN/NOTIFY event manager, adapted to be
// in-process only: there is no cross-node coordination here, by design.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/codeready-toolchain/fortuned/pkg/config"
	"github.com/codeready-toolchain/fortuned/pkg/models"
)

// Bus is the process-wide registry of per-task topics.
type Bus struct {
	cfg *config.StreamConfig

	mu     sync.RWMutex
	topics map[string]*topic
}

// New builds a Bus from cfg.
func New(cfg *config.StreamConfig) *Bus {
	return &Bus{cfg: cfg, topics: make(map[string]*topic)}
}

type topic struct {
	mu          sync.Mutex
	backlog     []models.ProgressEvent
	nextSeq     int64
	subscribers map[int64]*subscriber
	nextSubID   int64
	terminal    bool
	teardownAt  time.Time
}

type subscriber struct {
	ch      chan models.ProgressEvent
	dropped int
}

// topicFor returns the topic for taskID, creating it lazily.
func (b *Bus) topicFor(taskID string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[taskID]
	if !ok {
		t = &topic{subscribers: make(map[int64]*subscriber)}
		b.topics[taskID] = t
	}
	return t
}

// Publish appends event to taskID's topic (assigning it the next sequence
// number), retains it in the replay backlog, and fans it out to every
// live subscriber without blocking on a slow reader.
func (b *Bus) Publish(taskID string, event models.ProgressEvent) {
	t := b.topicFor(taskID)

	t.mu.Lock()
	t.nextSeq++
	event.Sequence = t.nextSeq
	event.Timestamp = time.Now()
	event.TaskID = taskID

	t.backlog = append(t.backlog, event)
	if len(t.backlog) > b.cfg.BacklogSize {
		t.backlog = t.backlog[len(t.backlog)-b.cfg.BacklogSize:]
	}
	if event.IsTerminal() {
		t.terminal = true
		t.teardownAt = time.Now().Add(time.Duration(b.cfg.TeardownGrace) * time.Second)
	}

	// Snapshot subscribers before sending so a slow reader's channel send
	// can't hold the topic lock for other publishers/subscribers.
	subs := make([]*subscriber, 0, len(t.subscribers))
	for _, s := range t.subscribers {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		// Deliver a pending lag notice first; if the channel is still full
		// the reader will simply see a later, larger "dropped" count on
		// its next successful receive rather than blocking here.
		t.mu.Lock()
		pending := s.dropped
		t.mu.Unlock()
		if pending > 0 {
			select {
			case s.ch <- models.ProgressEvent{Type: models.EventLag, TaskID: taskID, Dropped: pending, Timestamp: time.Now()}:
				t.mu.Lock()
				s.dropped -= pending
				t.mu.Unlock()
			default:
			}
		}
		select {
		case s.ch <- event:
		default:
			t.mu.Lock()
			s.dropped++
			t.mu.Unlock()
		}
	}
}

// Subscription is a live, backlog-primed view of one task's event stream.
type Subscription struct {
	Events  <-chan models.ProgressEvent
	Backlog []models.ProgressEvent
	cancel  func()
}

// Close detaches the subscription from its topic.
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe attaches to taskID's topic, returning the buffered backlog
// (for immediate replay) and a channel for live events from this point
// forward. If the topic already reached its terminal event and its grace
// period has elapsed, Subscribe still succeeds but returns only the
// backlog with a closed channel (nothing further will ever arrive).
func (b *Bus) Subscribe(ctx context.Context, taskID string) *Subscription {
	t := b.topicFor(taskID)

	t.mu.Lock()
	backlog := make([]models.ProgressEvent, len(t.backlog))
	copy(backlog, t.backlog)

	if t.terminal && time.Now().After(t.teardownAt) {
		t.mu.Unlock()
		closedCh := make(chan models.ProgressEvent)
		close(closedCh)
		return &Subscription{Events: closedCh, Backlog: backlog, cancel: func() {}}
	}

	id := t.nextSubID
	t.nextSubID++
	sub := &subscriber{ch: make(chan models.ProgressEvent, b.cfg.SubscriberBufferSize)}
	t.subscribers[id] = sub
	t.mu.Unlock()

	cancelled := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(cancelled)
			t.mu.Lock()
			delete(t.subscribers, id)
			empty := len(t.subscribers) == 0 && t.terminal
			t.mu.Unlock()
			if empty {
				b.maybeEvictTopic(taskID, t)
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-cancelled:
		}
	}()

	return &Subscription{Events: sub.ch, Backlog: backlog, cancel: cancel}
}

// maybeEvictTopic removes a topic once it is terminal, past its teardown
// grace period, and has no live subscribers.
func (b *Bus) maybeEvictTopic(taskID string, t *topic) {
	t.mu.Lock()
	evict := t.terminal && len(t.subscribers) == 0 && time.Now().After(t.teardownAt)
	t.mu.Unlock()
	if !evict {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.topics[taskID]; ok && cur == t {
		delete(b.topics, taskID)
	}
}

// Sweep evicts any topic whose terminal grace period has elapsed and that
// currently has no live subscribers. Intended to run on a periodic
// ticker so topics whose last subscriber never explicitly unsubscribed
// (e.g. a client that vanished) still get torn down.
func (b *Bus) Sweep() {
	b.mu.RLock()
	candidates := make([]string, 0)
	for taskID, t := range b.topics {
		t.mu.Lock()
		if t.terminal && len(t.subscribers) == 0 && time.Now().After(t.teardownAt) {
			candidates = append(candidates, taskID)
		}
		t.mu.Unlock()
	}
	b.mu.RUnlock()

	for _, taskID := range candidates {
		b.mu.Lock()
		delete(b.topics, taskID)
		b.mu.Unlock()
	}
}

// TopicCount reports the number of live topics, for health reporting.
func (b *Bus) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}
