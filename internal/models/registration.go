package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegistrationStatus string

const (
	StatusPending  RegistrationStatus = "pending"
	StatusApproved RegistrationStatus = "approved"
	StatusRejected RegistrationStatus = "rejected"
)

func (s RegistrationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether an admin decision may move a registration from s to next.
// Only pending registrations can be decided.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	return s == StatusPending && (next == StatusApproved || next == StatusRejected)
}

type Member struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Registration is one team's entry. TeamID is assigned once at creation and never changes.
type Registration struct {
	ID              uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	TeamID          string             `gorm:"uniqueIndex:idx_registrations_team_id;not null" json:"team_id"`
	TeamName        string             `gorm:"not null" json:"team_name"`
	LeaderName      string             `gorm:"not null" json:"leader_name"`
	LeaderEmail     string             `gorm:"uniqueIndex:idx_registrations_leader_email;not null" json:"leader_email"`
	Phone           string             `json:"phone"`
	College         string             `gorm:"not null" json:"college"`
	Members         []Member           `gorm:"serializer:json;type:jsonb" json:"members"`
	Status          RegistrationStatus `gorm:"index;not null;default:'pending'" json:"status"`
	ReviewNote      string             `json:"review_note,omitempty"`
	ReviewedBy      string             `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time         `json:"reviewed_at,omitempty"`
	PaymentProofKey string             `json:"payment_proof_key,omitempty"`
	UploadTokenHash string             `gorm:"not null;default:''" json:"-"`
	CreatedAt       time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	// UploadToken is the plaintext of UploadTokenHash. It is only set on the
	// value returned from a successful create.
	UploadToken string `gorm:"-" json:"-"`
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

func (Registration) TableName() string {
	return "registrations"
}

// PublicRegistration is what an unauthenticated status lookup may see.
type PublicRegistration struct {
	TeamID    string             `json:"team_id"`
	TeamName  string             `json:"team_name"`
	College   string             `json:"college"`
	Status    RegistrationStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

func (r *Registration) Public() PublicRegistration {
	return PublicRegistration{
		TeamID:    r.TeamID,
		TeamName:  r.TeamName,
		College:   r.College,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}
