package models

import "time"

// DeviceState is one key/value pair private to a single browser profile.
type DeviceState struct {
	DeviceID  string `gorm:"primaryKey;type:varchar(64)"`
	Key       string `gorm:"primaryKey;type:varchar(64)"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}
