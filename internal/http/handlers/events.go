package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eventgate/eventgate/internal/cache"
	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/domain/event"
	"github.com/eventgate/eventgate/internal/domain/registration"
)

type EventsStore interface {
	Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	List(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, error)
	Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error)
	Delete(ctx context.Context, id string) error
	StatsPast(ctx context.Context, filter event.ListEventsFilter) ([]event.Stats, error)
}

type eventRegistrationsLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]registration.WithUser, error)
}

type EventsHandler struct {
	repo  EventsStore
	regs  eventRegistrationsLister
	cache cache.Store
}

func NewEventsHandler(repo EventsStore, regs eventRegistrationsLister, store cache.Store) *EventsHandler {
	return &EventsHandler{repo: repo, regs: regs, cache: store}
}

func (h *EventsHandler) invalidate(ctx context.Context) {
	if h.cache != nil {
		h.cache.Delete(ctx, cache.KeyEventsListAll, cache.KeyEventsStats)
	}
}

func (h *EventsHandler) Create(ctx *gin.Context) {
	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	h.invalidate(cctx)
	ctx.JSON(http.StatusCreated, e)
}

func (h *EventsHandler) List(ctx *gin.Context) {
	filter, ok := parseEventFilter(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	unfiltered := filter.From == nil && filter.To == nil

	// only the unfiltered listing is cached; key space stays enumerable
	if unfiltered && h.cache != nil {
		if body, hit := h.cache.Get(cctx, cache.KeyEventsListAll); hit {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}
	}

	events, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	payload := gin.H{
		"items": events,
		"count": len(events),
	}

	if unfiltered && h.cache != nil {
		if body, marshalErr := json.Marshal(payload); marshalErr == nil {
			h.cache.Set(cctx, cache.KeyEventsListAll, body)
		}
	}

	ctx.JSON(http.StatusOK, payload)
}

// GetByID returns the event together with its registrations and registrant
// info, mirroring what the detail view renders.
func (h *EventsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	regs, err := h.regs.ListByEvent(cctx, id)

	if err != nil && !errors.Is(err, event.ErrNotFound) {
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	if regs == nil {
		regs = []registration.WithUser{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":            e.ID,
		"title":         e.Title,
		"description":   e.Description,
		"date":          e.Date,
		"createdAt":     e.CreatedAt,
		"updatedAt":     e.UpdatedAt,
		"registrations": regs,
	})
}

func (h *EventsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	var req event.UpdateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not update event")
		return
	}

	h.invalidate(cctx)
	ctx.JSON(http.StatusOK, e)
}

func (h *EventsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not delete event")
		return
	}

	h.invalidate(cctx)
	ctx.Status(http.StatusNoContent)
}

// StatsPast reports registration and attendance numbers for events that have
// already happened. Admin-gated at the router.
func (h *EventsHandler) StatsPast(ctx *gin.Context) {
	filter, ok := parseEventFilter(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	unfiltered := filter.From == nil && filter.To == nil

	if unfiltered && h.cache != nil {
		if body, hit := h.cache.Get(cctx, cache.KeyEventsStats); hit {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}
	}

	stats, err := h.repo.StatsPast(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not compute event statistics")
		return
	}

	payload := gin.H{
		"items": stats,
		"count": len(stats),
	}

	if unfiltered && h.cache != nil {
		if body, marshalErr := json.Marshal(payload); marshalErr == nil {
			h.cache.Set(cctx, cache.KeyEventsStats, body)
		}
	}

	ctx.JSON(http.StatusOK, payload)
}

func parseEventFilter(ctx *gin.Context) (event.ListEventsFilter, bool) {
	var filter event.ListEventsFilter

	if raw := ctx.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondBadRequest(ctx, "from must be an RFC3339 timestamp", nil)
			return filter, false
		}
		filter.From = &t
	}

	if raw := ctx.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondBadRequest(ctx, "to must be an RFC3339 timestamp", nil)
			return filter, false
		}
		filter.To = &t
	}

	return filter, true
}
