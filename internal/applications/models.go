package applications

import (
	"errors"
	"time"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
)

var (
	ErrNotFound   = errors.New("application not found")
	ErrValidation = errors.New("validation failed")
)

// Status tracks an application through review.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusReviewing Status = "reviewing"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusReviewing, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Application is an admission request submitted from the public site.
type Application struct {
	ID            string            `json:"id" bson:"_id,omitempty"`
	ApplicantName string            `json:"applicantName" bson:"applicantName"`
	Email         string            `json:"email" bson:"email"`
	Phone         string            `json:"phone" bson:"phone"`
	Program       string            `json:"program" bson:"program"`
	Address       string            `json:"address,omitempty" bson:"address,omitempty"`
	Qualification string            `json:"qualification,omitempty" bson:"qualification,omitempty"`
	Message       string            `json:"message,omitempty" bson:"message,omitempty"`
	Documents     []models.FileMeta `json:"documents" bson:"documents"`
	Status        Status            `json:"status" bson:"status"`
	Notes         string            `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// Filter narrows the admin listing.
type Filter struct {
	Status  Status
	Program string
	Limit   int
}
