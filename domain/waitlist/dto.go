package waitlist

import (
	"strings"

	"github.com/kennelworks/kennel-api/internal/models"
	"github.com/kennelworks/kennel-api/pkg/constants"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MaxNameLength  = 100
	MaxNotesLength = 1000
)

// CreateWaitlistEntryRequest is the public signup payload. Status and
// position are server-assigned and have no field here.
type CreateWaitlistEntryRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,us_phone"`
	Notes       string `json:"notes" validate:"max=1000"`
}

// UpdateWaitlistEntryRequest carries the only two admin-mutable fields.
// Any other key in the body is ignored by the decoder.
type UpdateWaitlistEntryRequest struct {
	Status *string `json:"status" validate:"omitnil,waitlist_status"`
	Notes  *string `json:"notes" validate:"omitnil,max=1000"`
}

func (r *UpdateWaitlistEntryRequest) IsEmpty() bool {
	return r.Status == nil && r.Notes == nil
}

type WaitlistEntryResponse struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Notes       string `json:"notes"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	Position    int    `json:"position"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

var legacyStatuses = map[string]string{
	"new":      models.WaitlistStatusWaiting,
	"complete": models.WaitlistStatusCompleted,
}

// NormalizeStatus maps a canonical status or a legacy admin label
// (New, Contacted, Complete) to its canonical value.
func NormalizeStatus(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))

	switch s {
	case models.WaitlistStatusWaiting, models.WaitlistStatusContacted, models.WaitlistStatusCompleted:
		return s, true
	}

	if canonical, ok := legacyStatuses[s]; ok {
		return canonical, true
	}

	return "", false
}

// StatusLabel is the display form of a canonical status. A Caser holds state,
// so each call gets its own.
func StatusLabel(status string) string {
	return cases.Title(language.English).String(status)
}

// ========================================
// Mappers
// ========================================

func ToWaitlistEntryModel(req *CreateWaitlistEntryRequest) *models.WaitlistEntry {
	if req == nil {
		return nil
	}
	return &models.WaitlistEntry{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Notes:       req.Notes,
		Status:      models.WaitlistStatusWaiting,
	}
}

func ToWaitlistEntryResponse(entry *models.WaitlistEntry) WaitlistEntryResponse {
	if entry == nil {
		return WaitlistEntryResponse{}
	}
	return WaitlistEntryResponse{
		ID:          entry.ID,
		FirstName:   entry.FirstName,
		LastName:    entry.LastName,
		PhoneNumber: entry.PhoneNumber,
		Notes:       entry.Notes,
		Status:      entry.Status,
		StatusLabel: StatusLabel(entry.Status),
		Position:    entry.Position,
		CreatedAt:   constants.FormatTimestamp(entry.CreatedAt),
		UpdatedAt:   constants.FormatTimestamp(entry.UpdatedAt),
	}
}

func ToWaitlistEntryResponses(entries []*models.WaitlistEntry) []WaitlistEntryResponse {
	responses := make([]WaitlistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, ToWaitlistEntryResponse(entry))
	}
	return responses
}
