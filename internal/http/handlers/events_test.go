package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventgate/eventgate/internal/cache"
	"github.com/eventgate/eventgate/internal/domain/event"
	"github.com/eventgate/eventgate/internal/domain/registration"
	"github.com/eventgate/eventgate/internal/http/handlers"
)

// Fake repository implementation of the handlers.EventsStore interface

type fakeEventsRepo struct {
	createFn    func(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	getFn       func(ctx context.Context, id string) (event.Event, error)
	listFn      func(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, error)
	updateFn    func(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error)
	deleteFn    func(ctx context.Context, id string) error
	statsPastFn func(ctx context.Context, filter event.ListEventsFilter) ([]event.Stats, error)

	listCalls int
}

func (f *fakeEventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}

	return event.NewFromCreateRequest(req), nil
}

func (f *fakeEventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return event.Event{}, event.ErrNotFound
}

func (f *fakeEventsRepo) List(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, error) {
	f.listCalls++

	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}

	return nil, nil
}

func (f *fakeEventsRepo) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}

	return event.Event{}, event.ErrNotFound
}

func (f *fakeEventsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}

	return nil
}

func (f *fakeEventsRepo) StatsPast(ctx context.Context, filter event.ListEventsFilter) ([]event.Stats, error) {
	if f.statsPastFn != nil {
		return f.statsPastFn(ctx, filter)
	}

	return nil, nil
}

type fakeEventRegsLister struct {
	listByEventFn func(ctx context.Context, eventID string) ([]registration.WithUser, error)
}

func (f *fakeEventRegsLister) ListByEvent(ctx context.Context, eventID string) ([]registration.WithUser, error) {
	if f.listByEventFn != nil {
		return f.listByEventFn(ctx, eventID)
	}

	return nil, nil
}

func TestCreateEventHandler(t *testing.T) {
	date := time.Now().UTC().Add(96 * time.Hour).Format(time.RFC3339)

	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeEventsRepo)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{
				"title": "Go Meetup",
				"description": "Monthly community meetup",
				"date": "` + date + `"
			}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "validation_error_short_title",
			body:           `{"title": "Go", "description": "x", "date": "` + date + `"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "validation_error_missing_date",
			body:           `{"title": "Go Meetup", "description": "Monthly community meetup"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "repo_error",
			body: `{
				"title": "Go Meetup",
				"description": "Monthly community meetup",
				"date": "` + date + `"
			}`,
			repoSetUp: func(f *fakeEventsRepo) {
				f.createFn = func(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
					return event.Event{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeEventsRepo{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			h := handlers.NewEventsHandler(repo, &fakeEventRegsLister{}, nil)

			r := setupRouter(http.MethodPost, "/events", h.Create)

			req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestListEventsHandler(t *testing.T) {
	now := time.Now().UTC()

	t.Run("unfiltered_list_is_cached", func(t *testing.T) {
		repo := &fakeEventsRepo{
			listFn: func(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, error) {
				return []event.Event{eventOn(newUUID(), now.Add(time.Hour))}, nil
			},
		}

		h := handlers.NewEventsHandler(repo, &fakeEventRegsLister{}, cache.New(time.Minute))

		r := setupRouter(http.MethodGet, "/events", h.List)

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
			}

			var resp struct {
				Count int `json:"count"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Count != 1 {
				t.Fatalf("got count %d, want 1", resp.Count)
			}
		}

		if repo.listCalls != 1 {
			t.Fatalf("got %d store reads, want 1 (second request should be served from cache)", repo.listCalls)
		}
	})

	t.Run("date_filter_bypasses_cache", func(t *testing.T) {
		repo := &fakeEventsRepo{
			listFn: func(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, error) {
				if filter.From == nil {
					t.Errorf("from filter not passed to the store")
				}
				return nil, nil
			},
		}

		h := handlers.NewEventsHandler(repo, &fakeEventRegsLister{}, cache.New(time.Minute))

		r := setupRouter(http.MethodGet, "/events", h.List)

		url := "/events?from=" + now.Format(time.RFC3339)

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
			}
		}

		if repo.listCalls != 2 {
			t.Fatalf("got %d store reads, want 2 (filtered listings are never cached)", repo.listCalls)
		}
	})

	t.Run("invalid_from_timestamp", func(t *testing.T) {
		h := handlers.NewEventsHandler(&fakeEventsRepo{}, &fakeEventRegsLister{}, nil)

		r := setupRouter(http.MethodGet, "/events", h.List)

		req := httptest.NewRequest(http.MethodGet, "/events?from=yesterday", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
		}
	})
}

func TestGetEventByIDHandler(t *testing.T) {
	eventID := newUUID()
	now := time.Now().UTC()

	tests := []struct {
		name           string
		url            string
		repoSetUp      func(*fakeEventsRepo)
		regsSetUp      func(*fakeEventRegsLister)
		wantStatusCode int
		wantRegsCount  int
	}{
		{
			name: "success_with_registrations",
			url:  "/events/" + eventID,
			repoSetUp: func(f *fakeEventsRepo) {
				f.getFn = func(ctx context.Context, id string) (event.Event, error) {
					return eventOn(id, now.Add(48*time.Hour)), nil
				}
			},
			regsSetUp: func(f *fakeEventRegsLister) {
				f.listByEventFn = func(ctx context.Context, id string) ([]registration.WithUser, error) {
					return []registration.WithUser{
						{
							Registration: registration.Registration{ID: newUUID(), EventID: id},
							User:         registration.Registrant{ID: newUUID(), Name: "Member", Email: "member@example.com"},
						},
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantRegsCount:  1,
		},
		{
			name: "success_without_registrations",
			url:  "/events/" + eventID,
			repoSetUp: func(f *fakeEventsRepo) {
				f.getFn = func(ctx context.Context, id string) (event.Event, error) {
					return eventOn(id, now.Add(48*time.Hour)), nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantRegsCount:  0,
		},
		{
			name:           "not_found",
			url:            "/events/" + eventID,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "bad_id",
			url:            "/events/not-a-uuid",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeEventsRepo{}
			regs := &fakeEventRegsLister{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}
			if tt.regsSetUp != nil {
				tt.regsSetUp(regs)
			}

			h := handlers.NewEventsHandler(repo, regs, nil)

			r := setupRouter(http.MethodGet, "/events/:id", h.GetByID)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusOK {
				return
			}

			var resp struct {
				Registrations []json.RawMessage `json:"registrations"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Registrations == nil {
				t.Fatalf("registrations must be an array, even when empty")
			}
			if len(resp.Registrations) != tt.wantRegsCount {
				t.Fatalf("got %d registrations, want %d", len(resp.Registrations), tt.wantRegsCount)
			}
		})
	}
}

func TestUpdateEventHandler(t *testing.T) {
	eventID := newUUID()

	t.Run("not_found", func(t *testing.T) {
		h := handlers.NewEventsHandler(&fakeEventsRepo{}, &fakeEventRegsLister{}, nil)

		r := setupRouter(http.MethodPut, "/events/:id", h.Update)

		req := httptest.NewRequest(http.MethodPut, "/events/"+eventID, bytes.NewBufferString(`{"title": "New Title"}`))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusNotFound, w.Body.String())
		}
	})

	t.Run("update_invalidates_list_cache", func(t *testing.T) {
		store := cache.New(time.Minute)
		store.Set(context.Background(), cache.KeyEventsListAll, []byte(`{"stale": true}`))

		repo := &fakeEventsRepo{
			updateFn: func(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
				e := eventOn(id, time.Now().UTC().Add(48*time.Hour))
				if req.Title != nil {
					e.Title = *req.Title
				}
				return e, nil
			},
		}

		h := handlers.NewEventsHandler(repo, &fakeEventRegsLister{}, store)

		r := setupRouter(http.MethodPut, "/events/:id", h.Update)

		req := httptest.NewRequest(http.MethodPut, "/events/"+eventID, bytes.NewBufferString(`{"title": "New Title"}`))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		if _, hit := store.Get(context.Background(), cache.KeyEventsListAll); hit {
			t.Fatalf("list cache entry should be invalidated after an update")
		}
	})
}

func TestDeleteEventHandler(t *testing.T) {
	eventID := newUUID()

	tests := []struct {
		name           string
		repoSetUp      func(*fakeEventsRepo)
		wantStatusCode int
	}{
		{
			name:           "success",
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "not_found",
			repoSetUp: func(f *fakeEventsRepo) {
				f.deleteFn = func(ctx context.Context, id string) error {
					return event.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeEventsRepo{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			h := handlers.NewEventsHandler(repo, &fakeEventRegsLister{}, nil)

			r := setupRouter(http.MethodDelete, "/events/:id", h.Delete)

			req := httptest.NewRequest(http.MethodDelete, "/events/"+eventID, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestStatsPastHandler(t *testing.T) {
	now := time.Now().UTC()

	repo := &fakeEventsRepo{
		statsPastFn: func(ctx context.Context, filter event.ListEventsFilter) ([]event.Stats, error) {
			return []event.Stats{
				{
					ID:              newUUID(),
					Title:           "Past Meetup",
					Date:            now.Add(-48 * time.Hour),
					TotalRegistered: 3,
					TotalCheckedIn:  2,
					AttendanceRate:  event.AttendanceRate(3, 2),
				},
			}, nil
		},
	}

	h := handlers.NewEventsHandler(repo, &fakeEventRegsLister{}, nil)

	r := setupRouter(http.MethodGet, "/events/stats", h.StatsPast)

	req := httptest.NewRequest(http.MethodGet, "/events/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Items []struct {
			AttendanceRate float64 `json:"attendanceRate"`
		} `json:"items"`
		Count int `json:"count"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Count != 1 {
		t.Fatalf("got count %d, want 1", resp.Count)
	}

	if resp.Items[0].AttendanceRate != 66.67 {
		t.Fatalf("got attendanceRate %v, want 66.67", resp.Items[0].AttendanceRate)
	}
}
