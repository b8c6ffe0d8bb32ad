package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/homebase/internal/auth"
	"github.com/dukerupert/homebase/internal/config"
	"github.com/dukerupert/homebase/internal/email"
	"github.com/dukerupert/homebase/internal/handler"
	"github.com/dukerupert/homebase/internal/jobs"
	"github.com/dukerupert/homebase/internal/middleware"
	"github.com/dukerupert/homebase/internal/notify"
	"github.com/dukerupert/homebase/internal/push"
	"github.com/dukerupert/homebase/internal/softdelete"
	"github.com/dukerupert/homebase/internal/store"
	ws "github.com/dukerupert/homebase/internal/websocket"
)

type Server struct {
	db          *sql.DB
	store       store.Store
	tokens      *auth.TokenIssuer
	hub         *ws.Hub
	authH       *handler.AuthHandler
	notifH      *handler.NotificationHandler
	choreH      *handler.ChoreHandler
	messageH    *handler.MessageHandler
	pushH       *handler.PushHandler
	rateLimiter *middleware.RateLimiter
	scheduler   *jobs.Scheduler
	logger      *slog.Logger
}

// New wires every component against db. The returned server owns one
// broadcaster instance shared by handlers and jobs.
func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	st := softdelete.New(store.NewSQLStore(db))
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	hub := ws.NewHub(tokens, st, logger.With("component", "websocket"))

	pushSvc := push.NewService(push.Config{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.VAPIDSubscriber,
	}, st, logger.With("component", "push"))
	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail)

	var emailSender notify.EmailSender
	if emailClient.Configured() {
		emailSender = email.NewBreaker(emailClient, email.DefaultBreakerSettings, logger.With("component", "email"))
	} else {
		logger.Warn("postmark token not set, email notifications disabled")
	}
	var pushSender notify.PushSender
	var pushH *handler.PushHandler
	if pushSvc.Configured() {
		pushSender = pushSvc
		pushH = handler.NewPushHandler(st, pushSvc, logger.With("component", "push_handler"))
	} else {
		logger.Warn("VAPID keys not set, push notifications disabled")
	}

	deliverer := notify.NewDeliverer(st, emailSender, pushSender, logger.With("component", "notify"))
	jobLogger := logger.With("component", "jobs")
	scheduler := jobs.NewScheduler(jobLogger)
	scheduler.Add(jobs.NewNotificationDispatchJob(st, deliverer, jobLogger), cfg.DispatchInterval)
	scheduler.Add(jobs.NewReminderJob(st, deliverer, jobLogger), cfg.ReminderInterval)
	scheduler.Add(jobs.NewChoreSchedulerJob(st, hub, jobLogger), cfg.SchedulerInterval)

	return &Server{
		db:          db,
		store:       st,
		tokens:      tokens,
		hub:         hub,
		authH:       handler.NewAuthHandler(st, tokens, logger.With("component", "auth")),
		notifH:      handler.NewNotificationHandler(st, hub, logger.With("component", "notification")),
		choreH:      handler.NewChoreHandler(st, hub, logger.With("component", "chore")),
		messageH:    handler.NewMessageHandler(st, hub, logger.With("component", "message")),
		pushH:       pushH,
		rateLimiter: middleware.NewRateLimiter(),
		scheduler:   scheduler,
		logger:      logger,
	}
}

// Start launches the background jobs and rate-limiter cleanup.
func (s *Server) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
	s.rateLimiter.StartCleanup(ctx, 5*time.Minute)
}

// Stop waits for in-flight job runs.
func (s *Server) Stop() {
	s.scheduler.Stop()
}

// Hub returns the process broadcaster.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
	outerMux.Handle("GET /metrics", promhttp.Handler())

	// Protected routes, wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.store)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "connections": s.hub.ClientCount()})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	member := middleware.RequireMember(s.store)
	admin := func(h http.HandlerFunc) http.Handler { return member(middleware.RequireAdmin(h)) }
	scoped := func(h http.HandlerFunc) http.Handler { return member(h) }

	// Notifications
	mux.HandleFunc("GET /api/notifications", s.notifH.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notifH.MarkRead)
	mux.HandleFunc("GET /api/notifications/preferences", s.notifH.GetPreferences)
	mux.HandleFunc("PUT /api/notifications/preferences", s.notifH.UpdatePreferences)

	// Household-scoped routes
	mux.Handle("GET /api/households/{hid}/chores", scoped(s.choreH.List))
	mux.Handle("POST /api/households/{hid}/chores", scoped(s.choreH.Create))
	mux.Handle("DELETE /api/households/{hid}/chores/{id}", admin(s.choreH.Delete))
	mux.Handle("POST /api/households/{hid}/threads/{tid}/messages", scoped(s.messageH.Create))
	mux.Handle("DELETE /api/households/{hid}/threads/{tid}/messages/{id}", scoped(s.messageH.Delete))

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscriptions", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}
}
