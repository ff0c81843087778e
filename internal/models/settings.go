package models

import "time"

// SettingsID is the primary key of the singleton settings row.
const SettingsID = 1

type Settings struct {
	ID              uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	WaitlistEnabled bool      `gorm:"not null;default:true" json:"waitlist_enabled"`
	StreamEnabled   bool      `gorm:"not null;default:false" json:"stream_enabled"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}
