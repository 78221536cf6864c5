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

type failingKV struct {
	getErr error
	setErr error
}

func (f failingKV) Get(context.Context, string) (string, bool, error) { return "", false, f.getErr }
func (f failingKV) Set(context.Context, string, string) error          { return f.setErr }

func newTracker() (*ReadStateTracker, store.KeyValueStore) {
	kv := store.NewMemoryDeviceStores().ForDevice("device-1")
	return NewReadStateTracker(kv), kv
}

func remindersFor(ids ...string) []Reminder {
	out := make([]Reminder, len(ids))
	for i, id := range ids {
		out[i] = Reminder{Record: models.ServiceRecord{ID: id}}
	}
	return out
}

func TestReadStateTracker_LoadEmpty(t *testing.T) {
	tracker, _ := newTracker()
	assert.Empty(t, tracker.Load(context.Background()))
}

func TestReadStateTracker_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	tracker, kv := newTracker()
	require.NoError(t, kv.Set(ctx, "okunmusBildirimler", "{not json"))

	assert.Empty(t, tracker.Load(ctx))

	require.NoError(t, tracker.MarkAcknowledged(ctx, "a"))
	assert.Equal(t, []string{"a"}, tracker.Load(ctx).IDs())
}

func TestReadStateTracker_LoadReadError(t *testing.T) {
	tracker := NewReadStateTracker(failingKV{getErr: errors.New("disk gone")})
	assert.Empty(t, tracker.Load(context.Background()))
}

func TestReadStateTracker_MarkWriteError(t *testing.T) {
	tracker := NewReadStateTracker(failingKV{setErr: errors.New("quota exceeded")})
	assert.EqualError(t, tracker.MarkAcknowledged(context.Background(), "a"), "quota exceeded")
}

// flakyKV fails the next read once failNextGet is set.
type flakyKV struct {
	store.KeyValueStore
	failNextGet bool
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failNextGet {
		f.failNextGet = false
		return "", false, errors.New("storage unavailable")
	}
	return f.KeyValueStore.Get(ctx, key)
}

func TestReadStateTracker_MarkKeepsStateOnReadError(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{KeyValueStore: store.NewMemoryDeviceStores().ForDevice("device-1")}
	tracker := NewReadStateTracker(kv)

	require.NoError(t, tracker.MarkAcknowledged(ctx, "a"))
	require.NoError(t, tracker.MarkAcknowledged(ctx, "b"))

	kv.failNextGet = true
	assert.EqualError(t, tracker.MarkAcknowledged(ctx, "c"), "storage unavailable")
	assert.Equal(t, []string{"a", "b"}, tracker.Load(ctx).IDs())

	require.NoError(t, tracker.MarkAcknowledged(ctx, "c"))
	assert.Equal(t, []string{"a", "b", "c"}, tracker.Load(ctx).IDs())
}

func TestReadStateHub_NotifiesDevice(t *testing.T) {
	ctx := context.Background()
	hub := NewReadStateHub()
	tracker, _ := newTracker()
	tracker.NotifyChanges(hub, "device-1")

	changes, release := hub.Subscribe("device-1")
	other, releaseOther := hub.Subscribe("device-2")
	defer releaseOther()

	require.NoError(t, tracker.MarkAcknowledged(ctx, "a"))
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change signalled for device-1")
	}
	select {
	case <-other:
		t.Fatal("device-2 must not be signalled")
	default:
	}

	release()
	release()
	hub.Publish("device-1")
	select {
	case <-changes:
		t.Fatal("released subscription must not be signalled")
	default:
	}
}

func TestReadStateTracker_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tracker, kv := newTracker()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, tracker.MarkAcknowledged(ctx, id))
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, tracker.Load(ctx).IDs())

	// A fresh tracker over the same storage sees the same set.
	assert.ElementsMatch(t, []string{"a", "b", "c"}, NewReadStateTracker(kv).Load(ctx).IDs())
}

func TestReadStateTracker_MarkIdempotent(t *testing.T) {
	ctx := context.Background()
	tracker, kv := newTracker()

	require.NoError(t, tracker.MarkAcknowledged(ctx, "a"))
	once, _, err := kv.Get(ctx, "okunmusBildirimler")
	require.NoError(t, err)

	require.NoError(t, tracker.MarkAcknowledged(ctx, "a"))
	twice, _, err := kv.Get(ctx, "okunmusBildirimler")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.JSONEq(t, `["a"]`, twice)
}

func TestUnreadCount(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTracker()
	reminders := remindersFor("a", "b", "c")

	assert.Equal(t, 3, UnreadCount(reminders, tracker.Load(ctx)))

	require.NoError(t, tracker.MarkAcknowledged(ctx, "zzz"))
	assert.Equal(t, 3, UnreadCount(reminders, tracker.Load(ctx)), "foreign id must not change the count")

	require.NoError(t, tracker.MarkAcknowledged(ctx, "b"))
	assert.Equal(t, 2, UnreadCount(reminders, tracker.Load(ctx)))

	for _, r := range reminders {
		require.NoError(t, tracker.MarkAcknowledged(ctx, r.Record.ID))
	}
	assert.Zero(t, UnreadCount(reminders, tracker.Load(ctx)))
	assert.Zero(t, UnreadCount(nil, tracker.Load(ctx)))
}

func TestDevicePreferences_InstallPrompt(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryDeviceStores().ForDevice("device-1")
	prefs := NewDevicePreferences(kv)
	now := time.Date(2024, 7, 8, 12, 0, 0, 0, time.UTC)

	assert.True(t, prefs.ShouldShowInstallPrompt(ctx, now))

	require.NoError(t, prefs.DismissInstallPrompt(ctx, now))
	assert.False(t, prefs.ShouldShowInstallPrompt(ctx, now.Add(6*24*time.Hour)))
	assert.True(t, prefs.ShouldShowInstallPrompt(ctx, now.Add(7*24*time.Hour)))

	require.NoError(t, kv.Set(ctx, "installPromptDismissed", "yesterday"))
	assert.True(t, prefs.ShouldShowInstallPrompt(ctx, now))
}
