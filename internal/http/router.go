package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/eventgate/eventgate/internal/auth"
	"github.com/eventgate/eventgate/internal/cache"
	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/http/handlers"
	"github.com/eventgate/eventgate/internal/http/middlewares"
	"github.com/eventgate/eventgate/internal/notifications"
	"github.com/eventgate/eventgate/internal/observability"
	"github.com/eventgate/eventgate/internal/repo/postgres"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(log *slog.Logger, cfg config.Config, pool *pgxpool.Pool, store cache.Store, notifier notifications.Notifier, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(otelgin.Middleware("eventgate"))
	r.Use(RequestLogger(log))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	eventsRepo := postgres.NewEventsRepo(pool, prom)
	registrationsRepo := postgres.NewRegistrationsRepo(pool, prom)

	// wire up handlers
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	authMW := middlewares.NewAuthMiddleware(tokens, usersRepo)

	authHandler := handlers.NewAuthHandler(usersRepo, tokens, notifier, prom)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	eventsHandler := handlers.NewEventsHandler(eventsRepo, registrationsRepo, store)
	registrationsHandler := handlers.NewRegistrationsHandler(registrationsRepo, eventsRepo, notifier, store)

	// credential endpoints get their own, tighter limit
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.SignUp)
		authGroup.POST("/login", authHandler.Login)
	}
	r.GET("/auth/profile", authMW.RequireAuth(), authHandler.Profile)

	users := r.Group("/users", authMW.RequireAuth())
	{
		users.GET("", authMW.RequireAdmin(), usersHandler.List)
		users.GET("/:id", usersHandler.GetByID)
		users.PUT("/:id", usersHandler.Update)
		users.DELETE("/:id", authMW.RequireAdmin(), usersHandler.Delete)
	}

	events := r.Group("/events", authMW.RequireAuth())
	{
		events.GET("", eventsHandler.List)
		events.GET("/:id", eventsHandler.GetByID)
		events.GET("/stats/past", authMW.RequireAdmin(), eventsHandler.StatsPast)
		events.POST("", authMW.RequireAdmin(), eventsHandler.Create)
		events.PUT("/:id", authMW.RequireAdmin(), eventsHandler.Update)
		events.DELETE("/:id", authMW.RequireAdmin(), eventsHandler.Delete)
	}

	// sign-up/cancel writes keyed by user so one account cannot hammer the
	// duplicate-detection path
	regLimiter := middlewares.NewRateLimiter(30, time.Minute)

	regs := r.Group("/registrations", authMW.RequireAuth())
	{
		regs.POST("", regLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), registrationsHandler.Register)
		regs.GET("/user", registrationsHandler.ListMine)
		regs.GET("/event/:eventId", authMW.RequireAdmin(), registrationsHandler.ListForEvent)
		regs.DELETE("/:id", registrationsHandler.Cancel)
		regs.PUT("/:id/checkin", authMW.RequireAdmin(), registrationsHandler.CheckIn)
	}

	return r
}
