package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otoil-backend/models"
	"otoil-backend/store"
)

type pipelineFixture struct {
	store    *stubStore
	feed     *RecordFeed
	hub      *AuthStateHub
	tracker  *ReadStateTracker
	pipeline *Pipeline
}

func newPipelineFixture(today time.Time) *pipelineFixture {
	st := &stubStore{}
	feed := NewRecordFeed(st)
	hub := NewAuthStateHub()
	tracker := NewReadStateTracker(store.NewMemoryDeviceStores().ForDevice("d1")).
		NotifyChanges(NewReadStateHub(), "d1")
	p := NewPipeline(feed, hub, tracker, time.UTC).WithClock(func() time.Time { return today })
	return &pipelineFixture{store: st, feed: feed, hub: hub, tracker: tracker, pipeline: p}
}

func staticSession(s *Session) SessionResolver {
	return func(context.Context) (*Session, error) { return s, nil }
}

// runPipeline starts Run in the background and forwards views to a channel.
func runPipeline(f *pipelineFixture, ctx context.Context, session *Session) (<-chan ReminderView, <-chan error) {
	views := make(chan ReminderView, 16)
	done := make(chan error, 1)
	go func() {
		done <- f.pipeline.Run(ctx, staticSession(session), func(v ReminderView) error {
			views <- v
			return nil
		})
	}()
	return views, done
}

func nextView(t *testing.T, views <-chan ReminderView) ReminderView {
	t.Helper()
	select {
	case v := <-views:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for view")
		return ReminderView{}
	}
}

func TestPipeline_RendersSnapshots(t *testing.T) {
	today := day(2024, 7, 8)
	f := newPipelineFixture(today)
	f.store.set(
		recordDue("soon", day(2024, 7, 10)),
		recordDue("overdue", day(2024, 7, 1)),
		recordDue("far", day(2024, 9, 1)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views, done := runPipeline(f, ctx, &Session{UserID: "u1", TokenID: "t1"})

	v := nextView(t, views)
	require.Len(t, v.Reminders, 2)
	assert.Equal(t, "overdue", v.Reminders[0].Record.ID)
	assert.Equal(t, "soon", v.Reminders[1].Record.ID)
	assert.Equal(t, 2, v.UnreadCount)
	assert.Equal(t, StateAuthenticated, f.pipeline.State())

	require.NoError(t, f.tracker.MarkAcknowledged(ctx, "overdue"))
	require.NoError(t, f.feed.Refresh(ctx))

	v = nextView(t, views)
	assert.Equal(t, 1, v.UnreadCount)
	assert.True(t, v.Reminders[0].Read)
	assert.False(t, v.Reminders[1].Read)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, StateUnauthenticated, f.pipeline.State())
	assert.Equal(t, 0, f.feed.Subscribers())
}

func TestPipeline_AcknowledgeRerendersBadge(t *testing.T) {
	f := newPipelineFixture(day(2024, 7, 8))
	f.store.set(recordDue("r1", day(2024, 7, 10)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views, _ := runPipeline(f, ctx, &Session{UserID: "u1", TokenID: "t1"})
	v := nextView(t, views)
	require.Equal(t, 1, v.UnreadCount)

	require.NoError(t, f.tracker.MarkAcknowledged(ctx, "r1"))

	v = nextView(t, views)
	assert.Zero(t, v.UnreadCount)
	require.Len(t, v.Reminders, 1)
	assert.True(t, v.Reminders[0].Read)
	assert.Equal(t, uint64(1), v.Version, "re-render reuses the last snapshot")
}

func TestPipeline_SignOutDuringResolve(t *testing.T) {
	f := newPipelineFixture(day(2024, 7, 8))
	revocations := NewTokenRevocations()
	session := &Session{UserID: "u1", TokenID: "t1", ExpiresAt: time.Now().Add(time.Hour)}

	// The first resolve succeeds, then the user signs out before the
	// pipeline has subscribed to the hub.
	calls := 0
	resolve := func(context.Context) (*Session, error) {
		calls++
		if revocations.IsRevoked(session.TokenID) {
			return nil, nil
		}
		if calls == 1 {
			SignOut(revocations, f.hub, *session)
		}
		return session, nil
	}

	rendered := false
	err := f.pipeline.Run(context.Background(), resolve, func(ReminderView) error { rendered = true; return nil })
	assert.ErrorIs(t, err, ErrSignedOut)
	assert.False(t, rendered)
	assert.Equal(t, 0, f.feed.Subscribers())
}

func TestPipeline_SignOutTearsDown(t *testing.T) {
	f := newPipelineFixture(day(2024, 7, 8))
	views, done := runPipeline(f, context.Background(), &Session{UserID: "u1", TokenID: "t1"})
	nextView(t, views)

	f.hub.Publish("t1", nil)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSignedOut)
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop on sign-out")
	}
	assert.Equal(t, 0, f.feed.Subscribers())
	assert.Equal(t, StateUnauthenticated, f.pipeline.State())
}

func TestPipeline_SessionExpiry(t *testing.T) {
	f := newPipelineFixture(day(2024, 7, 8))
	_, done := runPipeline(f, context.Background(), &Session{
		UserID: "u1", TokenID: "t1", ExpiresAt: time.Now().Add(50 * time.Millisecond),
	})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSignedOut)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop on expiry")
	}
}

func TestPipeline_ResolveFailure(t *testing.T) {
	f := newPipelineFixture(day(2024, 7, 8))
	rendered := false
	render := func(ReminderView) error { rendered = true; return nil }

	err := f.pipeline.Run(context.Background(), func(context.Context) (*Session, error) {
		return nil, errors.New("network-request-failed")
	}, render)
	assert.EqualError(t, err, "network-request-failed")

	err = f.pipeline.Run(context.Background(), staticSession(nil), render)
	assert.ErrorIs(t, err, ErrSignedOut)

	assert.False(t, rendered)
	assert.Equal(t, StateUnauthenticated, f.pipeline.State())
	assert.Equal(t, 0, f.feed.Subscribers())
}

func TestPipeline_RenderErrorStops(t *testing.T) {
	f := newPipelineFixture(day(2024, 7, 8))
	boom := errors.New("connection closed")
	err := f.pipeline.Run(context.Background(), staticSession(&Session{UserID: "u1", TokenID: "t1"}),
		func(ReminderView) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, f.feed.Subscribers())
}

func TestPipeline_ErrorSnapshotRendersEmpty(t *testing.T) {
	f := newPipelineFixture(day(2024, 7, 8))
	f.store.failWith(errors.New("permission denied"))

	v := f.pipeline.View(context.Background(), Snapshot{Version: 3, Err: errors.New("permission denied")})
	assert.Empty(t, v.Reminders)
	assert.NotEmpty(t, v.Error)
	assert.Equal(t, uint64(3), v.Version)
	assert.Zero(t, v.UnreadCount)
}

func TestPipeline_ViewIgnoresRecordsWithoutNextDate(t *testing.T) {
	f := newPipelineFixture(day(2024, 7, 8))
	v := f.pipeline.View(context.Background(), Snapshot{Records: []models.ServiceRecord{{ID: "bare"}}})
	assert.Empty(t, v.Reminders)
	assert.Empty(t, v.Error)
}
