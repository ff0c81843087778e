package settings

import (
	"github.com/kennelworks/kennel-api/internal/models"
	"github.com/kennelworks/kennel-api/pkg/constants"
)

type UpdateSettingsRequest struct {
	WaitlistEnabled *bool `json:"waitlist_enabled"`
	StreamEnabled   *bool `json:"stream_enabled"`
}

func (r *UpdateSettingsRequest) IsEmpty() bool {
	return r.WaitlistEnabled == nil && r.StreamEnabled == nil
}

type SettingsResponse struct {
	WaitlistEnabled bool   `json:"waitlist_enabled"`
	StreamEnabled   bool   `json:"stream_enabled"`
	UpdatedAt       string `json:"updated_at"`
}

func ToSettingsResponse(s *models.Settings) SettingsResponse {
	if s == nil {
		return SettingsResponse{}
	}
	return SettingsResponse{
		WaitlistEnabled: s.WaitlistEnabled,
		StreamEnabled:   s.StreamEnabled,
		UpdatedAt:       constants.FormatTimestamp(s.UpdatedAt),
	}
}
