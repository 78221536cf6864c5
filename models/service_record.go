package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceRecord is one logged maintenance visit for a vehicle. Records are
// shared across the whole shop; CreatedByUserID is kept for information only.
type ServiceRecord struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	CustomerName    string     `gorm:"not null;index" json:"customerName" bson:"musteriAdi"`
	Phone           string     `json:"phone,omitempty" bson:"telefon,omitempty"`
	Plate           string     `gorm:"not null;index" json:"plate" bson:"plaka"`
	VehicleModel    string     `gorm:"not null" json:"vehicleModel" bson:"aracModeli"`
	ServiceDate     time.Time  `gorm:"not null" json:"serviceDate" bson:"tarih"`
	WorkPerformed   string     `gorm:"type:text;not null" json:"workPerformed" bson:"yapilanIslemler"`
	CheckupNotes    string     `gorm:"type:text" json:"checkupNotes,omitempty" bson:"kontrolNotlari,omitempty"`
	Fee             float64    `gorm:"not null;default:0" json:"fee" bson:"ucret"`
	StaffName       string     `json:"staffName,omitempty" bson:"personelAdi,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"createdAt" bson:"createdAt"`
	NextServiceDate *time.Time `gorm:"index" json:"nextServiceDate,omitempty" bson:"sonrakiBakimTarihi,omitempty"`
	CreatedByUserID string     `gorm:"type:varchar(36)" json:"createdByUserId,omitempty" bson:"kullaniciId,omitempty"`
}

func (r *ServiceRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return
}
