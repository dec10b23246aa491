package event

import (
	"errors"
	"time"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListEventsFilter struct {
	From *time.Time
	To   *time.Time
}

var ErrNotFound = errors.New("event not found")

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=3,max=120"`
	Description string    `json:"description" binding:"required,max=1000"`
	Date        time.Time `json:"date" binding:"required"`
}

// partial update; absent fields keep their stored value
type UpdateEventRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=3,max=120"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	Date        *time.Time `json:"date" binding:"omitempty"`
}
