package services

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"otoil-backend/store"
)

const (
	acknowledgedKey          = "okunmusBildirimler"
	installPromptKey         = "installPromptDismissed"
	installPromptQuietPeriod = 7 * 24 * time.Hour
)

// AcknowledgedSet holds the reminder ids a device has dismissed.
type AcknowledgedSet map[string]struct{}

func (s AcknowledgedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in sorted order.
func (s AcknowledgedSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ReadStateTracker remembers which reminders one device has acknowledged.
// Reads and writes are not locked; two tabs writing at once race and the
// last write wins.
type ReadStateTracker struct {
	kv       store.KeyValueStore
	changes  *ReadStateHub
	deviceID string
	logger   *log.Entry
}

func NewReadStateTracker(kv store.KeyValueStore) *ReadStateTracker {
	return &ReadStateTracker{
		kv:     kv,
		logger: log.WithField("component", "read_state"),
	}
}

// Load returns the acknowledged set. Unreadable or corrupt state is logged and
// treated as empty.
func (t *ReadStateTracker) Load(ctx context.Context) AcknowledgedSet {
	raw, found, err := t.kv.Get(ctx, acknowledgedKey)
	if err != nil {
		t.logger.WithError(err).Warn("could not read acknowledged reminders")
		return AcknowledgedSet{}
	}
	if !found {
		return AcknowledgedSet{}
	}
	return t.parse(raw)
}

func (t *ReadStateTracker) parse(raw string) AcknowledgedSet {
	set := AcknowledgedSet{}
	if raw == "" {
		return set
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		t.logger.WithError(err).Warn("acknowledged reminders are corrupt, starting empty")
		return set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// MarkAcknowledged adds id to the set and writes it back immediately. Marking
// an id twice leaves the stored set unchanged. A failed read aborts the mark so
// earlier acknowledgements are never overwritten; corrupt state starts over.
func (t *ReadStateTracker) MarkAcknowledged(ctx context.Context, id string) error {
	raw, _, err := t.kv.Get(ctx, acknowledgedKey)
	if err != nil {
		t.logger.WithError(err).WithField("id", id).Error("could not read acknowledged reminders")
		return err
	}
	set := t.parse(raw)
	set[id] = struct{}{}

	encoded, err := json.Marshal(set.IDs())
	if err != nil {
		return err
	}
	if err := t.kv.Set(ctx, acknowledgedKey, string(encoded)); err != nil {
		t.logger.WithError(err).WithField("id", id).Error("could not save acknowledged reminder")
		return err
	}
	if t.changes != nil {
		t.changes.Publish(t.deviceID)
	}
	return nil
}

// NotifyChanges makes every successful mark announce itself on hub under
// deviceID, so open pipelines of that device re-render.
func (t *ReadStateTracker) NotifyChanges(hub *ReadStateHub, deviceID string) *ReadStateTracker {
	t.changes = hub
	t.deviceID = deviceID
	return t
}

// ReadStateHub tells live connections that a device acknowledged a reminder.
type ReadStateHub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewReadStateHub() *ReadStateHub {
	return &ReadStateHub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe returns a channel signalled after each change on deviceID and a
// func that releases it.
func (h *ReadStateHub) Subscribe(deviceID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.subs[deviceID] == nil {
		h.subs[deviceID] = make(map[chan struct{}]struct{})
	}
	h.subs[deviceID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[deviceID], ch)
			if len(h.subs[deviceID]) == 0 {
				delete(h.subs, deviceID)
			}
		})
	}
}

// Publish signals every subscriber of deviceID. Pending signals coalesce.
func (h *ReadStateHub) Publish(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[deviceID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// UnreadCount counts reminders whose record id is not acknowledged.
func UnreadCount(reminders []Reminder, acknowledged AcknowledgedSet) int {
	count := 0
	for _, r := range reminders {
		if !acknowledged.Has(r.Record.ID) {
			count++
		}
	}
	return count
}

// DevicePreferences stores the small UI preferences of one device.
type DevicePreferences struct {
	kv     store.KeyValueStore
	logger *log.Entry
}

func NewDevicePreferences(kv store.KeyValueStore) *DevicePreferences {
	return &DevicePreferences{
		kv:     kv,
		logger: log.WithField("component", "device_preferences"),
	}
}

// DismissInstallPrompt records that the install prompt was closed at now.
func (p *DevicePreferences) DismissInstallPrompt(ctx context.Context, now time.Time) error {
	return p.kv.Set(ctx, installPromptKey, strconv.FormatInt(now.UnixMilli(), 10))
}

// ShouldShowInstallPrompt is false for seven days after a dismissal.
func (p *DevicePreferences) ShouldShowInstallPrompt(ctx context.Context, now time.Time) bool {
	raw, found, err := p.kv.Get(ctx, installPromptKey)
	if err != nil {
		p.logger.WithError(err).Warn("could not read install prompt state")
		return true
	}
	if !found {
		return true
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.logger.WithError(err).Warn("install prompt state is corrupt")
		return true
	}
	return now.Sub(time.UnixMilli(millis)) >= installPromptQuietPeriod
}
