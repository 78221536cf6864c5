package store

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"otoil-backend/models"
)

// KeyValueStore is a small string store private to one browser profile.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// DeviceStores hands out the KeyValueStore of a single device.
type DeviceStores interface {
	ForDevice(deviceID string) KeyValueStore
}

// GormDeviceStores persists device state in the device_states table.
type GormDeviceStores struct {
	db *gorm.DB
}

func NewGormDeviceStores(db *gorm.DB) *GormDeviceStores {
	return &GormDeviceStores{db: db}
}

func (g *GormDeviceStores) ForDevice(deviceID string) KeyValueStore {
	return &gormKV{db: g.db, deviceID: deviceID}
}

type gormKV struct {
	db       *gorm.DB
	deviceID string
}

func (kv *gormKV) Get(ctx context.Context, key string) (string, bool, error) {
	var state models.DeviceState
	err := kv.db.WithContext(ctx).
		Where(&models.DeviceState{DeviceID: kv.deviceID, Key: key}).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return state.Value, true, nil
}

func (kv *gormKV) Set(ctx context.Context, key, value string) error {
	state := models.DeviceState{DeviceID: kv.deviceID, Key: key, Value: value, UpdatedAt: time.Now()}
	return kv.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&state).Error
}

// MemoryDeviceStores keeps device state in process memory. Entries never
// expire; they are lost on restart.
type MemoryDeviceStores struct {
	cache *cache.Cache
}

func NewMemoryDeviceStores() *MemoryDeviceStores {
	return &MemoryDeviceStores{cache: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryDeviceStores) ForDevice(deviceID string) KeyValueStore {
	return &memoryKV{cache: m.cache, prefix: deviceID + "/"}
}

type memoryKV struct {
	cache  *cache.Cache
	prefix string
}

func (kv *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	v, found := kv.cache.Get(kv.prefix + key)
	if !found {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (kv *memoryKV) Set(_ context.Context, key, value string) error {
	kv.cache.Set(kv.prefix+key, value, cache.NoExpiration)
	return nil
}
