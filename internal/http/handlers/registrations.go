package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventgate/eventgate/internal/cache"
	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/domain/event"
	"github.com/eventgate/eventgate/internal/domain/registration"
	"github.com/eventgate/eventgate/internal/eligibility"
	"github.com/eventgate/eventgate/internal/http/middlewares"
	"github.com/eventgate/eventgate/internal/notifications"
)

type RegistrationsStore interface {
	Create(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error)
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]registration.WithEvent, error)
	ListByEvent(ctx context.Context, eventID string) ([]registration.WithUser, error)
	Delete(ctx context.Context, id string) error
	CheckIn(ctx context.Context, id string) (registration.Registration, error)
}

type eventGetter interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

type RegistrationsHandler struct {
	repo     RegistrationsStore
	events   eventGetter
	notifier notifications.Notifier
	cache    cache.Store
}

func NewRegistrationsHandler(repo RegistrationsStore, events eventGetter, notifier notifications.Notifier, store cache.Store) *RegistrationsHandler {
	return &RegistrationsHandler{repo: repo, events: events, notifier: notifier, cache: store}
}

// Register signs the caller up for an event. The duplicate check is not done
// here: the store's compound unique index decides, so two racing requests
// cannot both succeed.
func (h *RegistrationsHandler) Register(ctx *gin.Context) {
	var req registration.CreateRegistrationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	req.UserID = identity.UserID

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.events.GetByID(cctx, req.EventID)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not register for event")
		return
	}

	if err := eligibility.Check(time.Now(), e.Date); err != nil {
		RespondError(ctx, http.StatusBadRequest, "registration_closed",
			"Registration and cancellation closed at the end of the day before the event.", nil)
		return
	}

	reg, err := h.repo.Create(cctx, req)

	if err != nil {
		switch {
		case errors.Is(err, registration.ErrAlreadyRegistered):
			RespondConflict(ctx, "already_registered", "You are already registered for this event.")
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		default:
			RespondInternal(ctx, "Could not register for event")
		}
		return
	}

	if h.notifier != nil {
		// best effort
		_ = h.notifier.SendRegistrationConfirmation(cctx, notifications.RegistrationConfirmationInput{
			Email:          identity.Email,
			Name:           identity.Name,
			EventTitle:     e.Title,
			RegistrationID: reg.ID,
		})
	}

	ctx.JSON(http.StatusCreated, reg)
}

// ListMine returns the caller's registrations with event details attached.
func (h *RegistrationsHandler) ListMine(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	regs, err := h.repo.ListByUser(cctx, identity.UserID)

	if err != nil {
		RespondInternal(ctx, "Could not list registrations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": regs,
		"count": len(regs),
	})
}

// ListForEvent returns an event's registrations with registrant info.
// Admin-gated at the router.
func (h *RegistrationsHandler) ListForEvent(ctx *gin.Context) {
	eventID := ctx.Param("eventId")

	if !isUUID(eventID) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	regs, err := h.repo.ListByEvent(cctx, eventID)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}

		RespondInternal(ctx, "Could not list registrations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"eventId":       eventID,
		"count":         len(regs),
		"registrations": regs,
	})
}

// Cancel deletes a registration: owner or admin, and only while the event's
// window is still open.
func (h *RegistrationsHandler) Cancel(ctx *gin.Context) {
	regID := ctx.Param("id")

	if !isUUID(regID) {
		RespondBadRequest(ctx, "registration id must be a valid UUID", nil)
		return
	}

	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// load registration to check ownership
	reg, err := h.repo.GetByID(cctx, regID)

	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}

		RespondInternal(ctx, "Could not cancel registration")
		return
	}

	if !middlewares.OwnerOrAdmin(identity, reg.UserID) {
		RespondForbidden(ctx, "You can only cancel your own registration")
		return
	}

	e, err := h.events.GetByID(cctx, reg.EventID)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not cancel registration")
		return
	}

	if err := eligibility.Check(time.Now(), e.Date); err != nil {
		RespondError(ctx, http.StatusBadRequest, "registration_closed",
			"Registration and cancellation closed at the end of the day before the event.", nil)
		return
	}

	err = h.repo.Delete(cctx, regID)

	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}

		RespondInternal(ctx, "Could not cancel registration")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// CheckIn marks a registrant present. Admin-gated at the router. There is no
// window check: check-in happens at the live event, after the deadline.
func (h *RegistrationsHandler) CheckIn(ctx *gin.Context) {
	regID := ctx.Param("id")

	if !isUUID(regID) {
		RespondBadRequest(ctx, "registration id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	reg, err := h.repo.CheckIn(cctx, regID)

	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			RespondNotFound(ctx, "Registration not found")
			return
		}

		RespondInternal(ctx, "Could not check in registration")
		return
	}

	// attendance numbers for this event just changed
	if h.cache != nil {
		h.cache.Delete(cctx, cache.KeyEventsStats)
	}

	ctx.JSON(http.StatusOK, reg)
}
