package realtime

import (
	"sync"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
)

// Filter selects the change events a subscriber receives. Empty Tables or
// Ops match everything; a zero ContestID matches every contest. Events not
// scoped to a contest pass any ContestID.
type Filter struct {
	Tables    []string
	Ops       []models.ChangeOp
	ContestID int
}

// Match reports whether ev passes the filter
func (f Filter) Match(ev models.ChangeEvent) bool {
	if len(f.Tables) > 0 && !contains(f.Tables, ev.Table) {
		return false
	}
	if len(f.Ops) > 0 && !contains(f.Ops, ev.Op) {
		return false
	}
	if f.ContestID != 0 && ev.ContestID != 0 && ev.ContestID != f.ContestID {
		return false
	}
	return true
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Feed fans committed row changes out to subscribers. Publish never blocks:
// each subscription queues events and delivers them in order on its own
// goroutine. There is no ordering across different subscriptions.
type Feed struct {
	log logger.Logger

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewFeed creates an empty feed
func NewFeed(log logger.Logger) *Feed {
	return &Feed{
		log:  log,
		subs: make(map[*Subscription]struct{}),
	}
}

// Publish delivers ev to every matching subscription
func (f *Feed) Publish(ev models.ChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for sub := range f.subs {
		if sub.filter.Match(ev) {
			sub.enqueue(ev)
		}
	}
}

// Subscribe registers callback for events matching filter. The callback is
// never invoked concurrently with itself. A subscription on a closed feed
// is returned already closed.
func (f *Feed) Subscribe(filter Filter, callback func(models.ChangeEvent)) *Subscription {
	sub := &Subscription{
		feed:     f,
		filter:   filter,
		callback: callback,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		sub.closeOnce.Do(func() { close(sub.done) })
		close(sub.exited)
		return sub
	}
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	go sub.run()
	f.log.Debug("realtime subscription opened", "tables", filter.Tables, "contest_id", filter.ContestID)
	return sub
}

// Subscribers returns the number of open subscriptions
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close closes every subscription and rejects new ones
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	subs := make([]*Subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.subs = make(map[*Subscription]struct{})
	f.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
}

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
}

// Subscription is one registered callback
type Subscription struct {
	feed     *Feed
	filter   Filter
	callback func(models.ChangeEvent)

	mu    sync.Mutex
	queue []models.ChangeEvent

	wake      chan struct{}
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) enqueue(ev models.ChangeEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	defer close(s.exited)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.callback(ev)
		}
	}
}

// Close stops delivery. When Close returns the callback is not running and
// will not run again. Close must not be called from the callback itself.
func (s *Subscription) Close() {
	s.feed.remove(s)
	s.shutdown()
}

func (s *Subscription) shutdown() {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.exited
}

// Done is closed once the subscription stops delivering
func (s *Subscription) Done() <-chan struct{} {
	return s.exited
}
