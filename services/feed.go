package services

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"otoil-backend/models"
	"otoil-backend/store"
)

// Snapshot is the full record list at one point in time. A snapshot always
// replaces the previous one; Err is set when the store could not be read.
type Snapshot struct {
	Records []models.ServiceRecord
	Version uint64
	Err     error
}

// Subscription receives snapshots until Unsubscribe is called. C holds at most
// one pending snapshot: a newer one replaces an unread older one.
type Subscription struct {
	C <-chan Snapshot

	ch   chan Snapshot
	feed *RecordFeed
	once sync.Once
}

// Unsubscribe stops deliveries and closes C. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		delete(s.feed.subs, s)
		close(s.ch)
	})
}

// RecordFeed is the live view over the record store. Writers call Refresh
// after each successful change and every subscriber gets the new list.
type RecordFeed struct {
	store store.RecordStore

	refreshMu sync.Mutex

	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	current Snapshot
	loaded  bool

	logger *log.Entry
}

func NewRecordFeed(s store.RecordStore) *RecordFeed {
	return &RecordFeed{
		store:  s,
		subs:   make(map[*Subscription]struct{}),
		logger: log.WithField("component", "record_feed"),
	}
}

// Subscribe registers a subscriber and hands it the current snapshot right away.
func (f *RecordFeed) Subscribe(ctx context.Context) *Subscription {
	f.mu.Lock()
	loaded := f.loaded
	f.mu.Unlock()
	if !loaded {
		f.Refresh(ctx)
	}

	ch := make(chan Snapshot, 1)
	sub := &Subscription{C: ch, ch: ch, feed: f}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub] = struct{}{}
	ch <- f.current
	return sub
}

// Current returns the most recent snapshot.
func (f *RecordFeed) Current() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Refresh re-reads the whole collection and fans the result out. A read error
// is published as a snapshot too; nothing is retried.
func (f *RecordFeed) Refresh(ctx context.Context) error {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()

	records, err := f.store.List(ctx, "")
	if err != nil {
		f.logger.WithError(err).Error("failed to read service records")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	snap := Snapshot{Records: records, Version: f.current.Version + 1, Err: err}
	if err != nil {
		snap.Records = nil
	}
	f.current = snap
	f.loaded = true
	for sub := range f.subs {
		deliver(sub.ch, snap)
	}
	return err
}

func deliver(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	// Drop the stale pending snapshot and queue the new one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Subscribers reports how many subscriptions are open.
func (f *RecordFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
