package services

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrSignedOut = errors.New("signed out")

type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ReminderItem is a reminder with the calling device's read flag.
type ReminderItem struct {
	Reminder
	Read bool `json:"read"`
}

// ReminderView is what a connected client renders after each snapshot.
type ReminderView struct {
	Reminders   []ReminderItem `json:"reminders"`
	UnreadCount int            `json:"unreadCount"`
	Version     uint64         `json:"version"`
	Error       string         `json:"error,omitempty"`
}

// SessionResolver resolves the session of the connecting client.
type SessionResolver func(ctx context.Context) (*Session, error)

// Renderer receives every computed view. Returning an error ends the pipeline.
type Renderer func(view ReminderView) error

// Pipeline drives one client connection from sign-in to sign-out: every
// record snapshot is turned into a sorted reminder list with an unread count.
type Pipeline struct {
	feed    *RecordFeed
	hub     *AuthStateHub
	tracker *ReadStateTracker
	now     func() time.Time
	loc     *time.Location

	mu    sync.Mutex
	state SessionState

	logger *log.Entry
}

func NewPipeline(feed *RecordFeed, hub *AuthStateHub, tracker *ReadStateTracker, loc *time.Location) *Pipeline {
	if loc == nil {
		loc = time.Local
	}
	return &Pipeline{
		feed:    feed,
		hub:     hub,
		tracker: tracker,
		now:     time.Now,
		loc:     loc,
		logger:  log.WithField("component", "pipeline"),
	}
}

func (p *Pipeline) State() SessionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s SessionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// WithClock replaces the clock used to decide "today".
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run resolves the session and renders a view for every snapshot until the
// context ends, the session is signed out or expires, or render fails. A
// read-state change on the tracker's device re-renders the last snapshot. The
// feed subscription is always released before Run returns.
func (p *Pipeline) Run(ctx context.Context, resolve SessionResolver, render Renderer) error {
	p.setState(StateAuthenticating)
	defer p.setState(StateUnauthenticated)

	session, err := resolve(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSignedOut
	}

	auth := p.hub.Subscribe(session.TokenID)
	defer auth.Unsubscribe()

	// A sign-out published before Subscribe reached nobody; resolve again now
	// that it cannot be missed.
	if session, err = resolve(ctx); err != nil {
		return err
	}
	if session == nil {
		return ErrSignedOut
	}
	p.setState(StateAuthenticated)
	logger := p.logger.WithField("userId", session.UserID)

	var readChanges <-chan struct{}
	if p.tracker.changes != nil {
		ch, release := p.tracker.changes.Subscribe(p.tracker.deviceID)
		defer release()
		readChanges = ch
	}

	sub := p.feed.Subscribe(ctx)
	defer sub.Unsubscribe()

	var expired <-chan time.Time
	if !session.ExpiresAt.IsZero() {
		timer := time.NewTimer(time.Until(session.ExpiresAt))
		defer timer.Stop()
		expired = timer.C
	}

	var last *Snapshot
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expired:
			logger.Info("session expired")
			return ErrSignedOut
		case s := <-auth.C:
			if s == nil {
				logger.Info("session signed out")
				return ErrSignedOut
			}
		case <-readChanges:
			if last == nil {
				continue
			}
			if err := render(p.View(ctx, *last)); err != nil {
				return err
			}
		case snap, ok := <-sub.C:
			if !ok {
				return nil
			}
			last = &snap
			if err := render(p.View(ctx, snap)); err != nil {
				return err
			}
		}
	}
}

// View computes the reminder view of one snapshot.
func (p *Pipeline) View(ctx context.Context, snap Snapshot) ReminderView {
	view := ReminderView{Reminders: []ReminderItem{}, Version: snap.Version}
	if snap.Err != nil {
		p.logger.WithError(snap.Err).Warn("snapshot failed, rendering empty view")
		view.Error = "Kayıtlar yüklenemedi."
		return view
	}

	today := p.now().In(p.loc)
	reminders := BuildReminders(snap.Records, today)
	acknowledged := p.tracker.Load(ctx)
	for _, r := range reminders {
		view.Reminders = append(view.Reminders, ReminderItem{Reminder: r, Read: acknowledged.Has(r.Record.ID)})
	}
	view.UnreadCount = UnreadCount(reminders, acknowledged)
	return view
}
