package registration

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/eventgate/eventgate/internal/domain/event"
)

type Registration struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	EventID     string     `json:"eventId"`
	CheckedIn   bool       `json:"checkedIn"`
	CheckinTime *time.Time `json:"checkinTime,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// WithEvent is a registration joined with its event, for user-scoped listings.
type WithEvent struct {
	Registration
	Event event.Event `json:"event"`
}

// Registrant is the sanitized user info embedded in event-scoped listings.
type Registrant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type WithUser struct {
	Registration
	User Registrant `json:"user"`
}

var (
	ErrAlreadyRegistered = errors.New("registration already exists")
	ErrNotFound          = errors.New("registration not found")
)

type CreateRegistrationRequest struct {
	EventID string `json:"eventId" binding:"required,uuid"`
	UserID  string `json:"-"`
}

// A factory to build a Registration from the incoming DTO

func NewFromCreateRequest(req CreateRegistrationRequest) Registration {
	now := time.Now().UTC()
	return Registration{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		EventID:   req.EventID,
		CheckedIn: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
