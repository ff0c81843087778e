package auth

import (
	"github.com/kennelworks/kennel-api/internal/models"
	"github.com/kennelworks/kennel-api/pkg/constants"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

// SessionMeta describes the client a session was opened from.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

type CreateAdminRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,min=12,max=72"`
}

type AdminResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	Admin     AdminResponse `json:"admin"`
}

// Principal is the authenticated admin attached to a request.
type Principal struct {
	AdminID   string `json:"id"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ExpiresAt string `json:"expires_at"`
}

func ToAdminResponse(u *models.AdminUser) AdminResponse {
	if u == nil {
		return AdminResponse{}
	}
	return AdminResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func toPrincipal(session *models.AdminSession) *Principal {
	return &Principal{
		AdminID:   session.AdminUser.ID,
		SessionID: session.ID,
		Email:     session.AdminUser.Email,
		FirstName: session.AdminUser.FirstName,
		LastName:  session.AdminUser.LastName,
		ExpiresAt: constants.FormatTimestamp(session.ExpiresAt),
	}
}
