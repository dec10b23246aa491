package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventgate/eventgate/internal/auth"
	"github.com/eventgate/eventgate/internal/domain/user"
	"github.com/eventgate/eventgate/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUserResolver struct {
	getFn func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUserResolver) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return user.User{}, user.ErrNotFound
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewManager("test-secret", time.Hour)

	memberID := uuid.NewString()
	member := user.User{ID: memberID, Email: "member@example.com", Name: "Member", Role: user.RoleUser}

	memberToken, err := tokens.Issue(member.ID, member.Email, member.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	expiredTokens := auth.NewManager("test-secret", -time.Hour)
	expiredToken, err := expiredTokens.Issue(member.ID, member.Email, member.Role)
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}

	tests := []struct {
		name           string
		authorization  string
		resolverSetUp  func(*fakeUserResolver)
		wantStatusCode int
	}{
		{
			name: "valid_token_resolves_identity",
			authorization: "Bearer " + memberToken,
			resolverSetUp: func(f *fakeUserResolver) {
				f.getFn = func(ctx context.Context, id string) (user.User, error) {
					if id != memberID {
						t.Errorf("got lookup for %q, want %q", id, memberID)
					}
					return member, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing_header",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "wrong_scheme",
			authorization:  "Basic dXNlcjpwYXNz",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "garbage_token",
			authorization:  "Bearer not.a.token",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "expired_token",
			authorization:  "Bearer " + expiredToken,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			// the token is still valid but the account is gone; the store
			// lookup on every request makes the token worthless immediately
			name:           "deleted_user",
			authorization:  "Bearer " + memberToken,
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeUserResolver{}

			if tt.resolverSetUp != nil {
				tt.resolverSetUp(resolver)
			}

			mw := middlewares.NewAuthMiddleware(tokens, resolver)

			r := gin.New()
			r.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
				identity, ok := middlewares.IdentityFromContext(c)
				if !ok {
					t.Errorf("identity missing after RequireAuth")
				}
				if identity.UserID != memberID {
					t.Errorf("got identity %q, want %q", identity.UserID, memberID)
				}
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name           string
		identity       *middlewares.Identity
		wantStatusCode int
	}{
		{
			name:           "admin_passes",
			identity:       &middlewares.Identity{UserID: uuid.NewString(), Role: user.RoleAdmin},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "plain_user_forbidden",
			identity:       &middlewares.Identity{UserID: uuid.NewString(), Role: user.RoleUser},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "no_identity",
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			mw := middlewares.NewAuthMiddleware(nil, nil)

			r := gin.New()
			r.GET("/admin",
				func(c *gin.Context) {
					if tt.identity != nil {
						middlewares.SetIdentity(c, *tt.identity)
					}
					c.Next()
				},
				mw.RequireAdmin(),
				func(c *gin.Context) { c.Status(http.StatusOK) },
			)

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestOwnerOrAdmin(t *testing.T) {
	ownerID := uuid.NewString()

	tests := []struct {
		name     string
		identity middlewares.Identity
		want     bool
	}{
		{
			name:     "owner",
			identity: middlewares.Identity{UserID: ownerID, Role: user.RoleUser},
			want:     true,
		},
		{
			name:     "admin",
			identity: middlewares.Identity{UserID: uuid.NewString(), Role: user.RoleAdmin},
			want:     true,
		},
		{
			name:     "stranger",
			identity: middlewares.Identity{UserID: uuid.NewString(), Role: user.RoleUser},
			want:     false,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			if got := middlewares.OwnerOrAdmin(tt.identity, ownerID); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
