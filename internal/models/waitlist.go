package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Waitlist statuses. Every entry starts as WaitlistStatusWaiting.
const (
	WaitlistStatusWaiting   = "waiting"
	WaitlistStatusContacted = "contacted"
	WaitlistStatusCompleted = "completed"
)

// WaitlistSequenceID is the id of the guard row locked by position-changing writes.
const WaitlistSequenceID = 1

type WaitlistEntry struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	FirstName   string    `gorm:"size:100;not null" json:"first_name"`
	LastName    string    `gorm:"size:100;not null" json:"last_name"`
	PhoneNumber string    `gorm:"size:14;not null" json:"phone_number"`
	Notes       string    `gorm:"size:1000;not null;default:''" json:"notes"`
	Status      string    `gorm:"size:16;not null;default:waiting" json:"status"`
	Position    int       `gorm:"not null;uniqueIndex:idx_waitlist_entries_position" json:"position"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (e *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = WaitlistStatusWaiting
	}
	return nil
}

// WaitlistSequence holds a single row. Creates and deletes lock it FOR UPDATE
// so position assignment and renumbering never interleave.
type WaitlistSequence struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Version   int64     `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
