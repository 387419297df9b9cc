package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"ecobud/internal/cache"
	"ecobud/internal/core"
	"ecobud/internal/jobs"
	"ecobud/internal/log"
	"ecobud/internal/middleware/ratelimit"
	"ecobud/internal/middleware/security"
	"ecobud/internal/middleware/trace"
	"ecobud/internal/services"
)

type (
	TransactionAPI interface {
		List(ctx context.Context, username string) ([]core.Transaction, error)
		Get(ctx context.Context, username, id string) (core.Transaction, error)
		Update(ctx context.Context, username, id string, doc []byte) (core.Transaction, error)
		RequestSync(ctx context.Context, username string) (*jobs.SyncJob, error)
		SyncNow(ctx context.Context, username string) (services.SyncResult, error)
	}

	AnalyticsAPI interface {
		Query(ctx context.Context, in core.AnalyticsInput) (core.AnalyticsOutput, error)
	}

	UserAPI interface {
		Create(ctx context.Context, username, email, password string) (core.User, error)
		Login(ctx context.Context, username, password string) (core.User, error)
	}

	BankAPI interface {
		LinkURL(ctx context.Context, username string) (string, error)
		Callback(ctx context.Context, credentialsID, state string) (string, error)
	}

	// RawFetcher serves the aggregator payloads untouched
	RawFetcher interface {
		FetchTransactions(ctx context.Context, username string, pageCount int) ([]json.RawMessage, error)
	}

	JobReader interface {
		GetJob(ctx context.Context, jobID string) (*jobs.SyncJob, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Deps are the services behind the routes
type Deps struct {
	Transactions TransactionAPI
	Analytics    AnalyticsAPI
	Users        UserAPI
	Bank         BankAPI
	Raw          RawFetcher
	Jobs         JobReader
	Readiness    []Pinger
	Logger       *log.Logger
}

// Options tune the HTTP surface
type Options struct {
	SessionTTL    time.Duration
	SecureCookies bool
	RateLimit     ratelimit.Config
	PageCount     int
}

type Server struct {
	http.Server
	deps     Deps
	opts     Options
	sessions *cache.LRUCache[string]
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.PageCount < 1 {
		opts.PageCount = 1
	}

	ips, err := security.NewClientIPExtractor()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		deps:     deps,
		opts:     opts,
		sessions: cache.NewLRUCache[string](10000, opts.SessionTTL),
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		tracer:   trace.NewMiddleware(deps.Logger, ips.Extract),
	}

	limited := s.limiter.Middleware(ips.Extract, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /user", limited(http.HandlerFunc(s.handleCreateUser)))
	mux.Handle("POST /login", limited(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /bank/link", s.requireUser(s.handleBankLink))
	mux.HandleFunc("GET /bank/callback", s.handleBankCallback)

	mux.HandleFunc("GET /tink/transactions", s.requireUser(s.handleRawTransactions))
	mux.HandleFunc("POST /tink/webhook", s.handleWebhook)

	mux.HandleFunc("GET /transactions", s.requireUser(s.handleListTransactions))
	mux.HandleFunc("GET /transactions/{id}", s.requireUser(s.handleGetTransaction))
	mux.HandleFunc("PUT /transactions/{id}", s.requireUser(s.handleUpdateTransaction))
	mux.HandleFunc("POST /transactions/sync", s.requireUser(s.handleSync))
	mux.HandleFunc("GET /jobs/{id}", s.requireUser(s.handleGetJob))

	mux.HandleFunc("GET /analytics", s.requireUser(s.handleAnalytics))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.tracer.Middleware(recovery(headers.Middleware(mux)))

	return s, nil
}

// Sessions exposes the session cache for periodic cleanup
func (s *Server) Sessions() cache.Cleaner {
	return s.sessions
}

// Shutdown stops the rate limiter and drains the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// recovery turns a panicking handler into a 500
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Panic recovered",
					log.FieldError, err,
					log.FieldMethod, r.Method,
					log.FieldPath, r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, p := range s.deps.Readiness {
		if err := p.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", log.FieldComponent, log.ComponentHTTP, log.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleWebhook acknowledges Tink event deliveries. Events are logged and
// not acted on; the next listing picks the changes up.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event struct {
		Context struct {
			UserID         string `json:"userId"`
			ExternalUserID string `json:"externalUserId"`
		} `json:"context"`
		Event string `json:"event"`
	}
	body, err := readBody(w, r)
	if err == nil {
		err = json.Unmarshal(body, &event)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Tink webhook received",
		"event", strings.TrimSpace(event.Event),
		log.FieldUsername, event.Context.ExternalUserID)
	w.WriteHeader(http.StatusOK)
}
