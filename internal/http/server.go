package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"caixa/internal/cache"
	"caixa/internal/core"
	"caixa/internal/services"
)

// SessionAPI is the slice of the session service the HTTP layer uses.
// Implemented by services.SessionService.
type SessionAPI interface {
	OpenSession(ctx context.Context, req services.OpenSessionRequest) (core.Session, error)
	Session(ctx context.Context, id int64) (core.Session, error)
	RecordEntries(ctx context.Context, sessionID int64, pos []core.POSRecord, pix []core.PixRecord) (int, error)
	RecordObligations(ctx context.Context, sessionID int64, obligations []core.Obligation) error
	CashBook(ctx context.Context, sessionID int64) (services.CashBook, error)
	Summary(ctx context.Context, sessionID int64) (core.Summary, error)
	Pending(ctx context.Context, sessionID int64) (services.PendingPayouts, error)
	Validate(ctx context.Context, sessionID int64, actor string) (core.Session, error)
	Close(ctx context.Context, sessionID int64, actor string) (core.Session, error)
	Reject(ctx context.Context, sessionID int64, actor string) error
}

type Server struct {
	http.Server
	sessions    SessionAPI
	rateLimiter *rateLimiter

	// Read-side caches. Writes to a session invalidate its entries.
	cashbookCache *cache.LRUCache[services.CashBook]
	summaryCache  *cache.LRUCache[core.Summary]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, sessions SessionAPI) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		sessions:      sessions,
		rateLimiter:   newRateLimiter(),
		cashbookCache: cache.NewLRUCache[services.CashBook](200, 5*time.Minute),
		summaryCache:  cache.NewLRUCache[core.Summary](200, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.cashbookCache)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /sessions", s.withMiddleware(s.handleOpenSession))
	mux.HandleFunc("GET /sessions/{id}", s.withMiddleware(s.handleGetSession))
	mux.HandleFunc("POST /sessions/{id}/entries", s.withMiddleware(s.handleRecordEntries))
	mux.HandleFunc("POST /sessions/{id}/obligations", s.withMiddleware(s.handleRecordObligations))
	mux.HandleFunc("GET /sessions/{id}/cashbook", s.withMiddleware(s.handleCashBook))
	mux.HandleFunc("GET /sessions/{id}/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("GET /sessions/{id}/pending", s.withMiddleware(s.handlePending))
	mux.HandleFunc("POST /sessions/{id}/validate", s.withMiddleware(s.handleValidate))
	mux.HandleFunc("POST /sessions/{id}/close", s.withMiddleware(s.handleClose))
	mux.HandleFunc("POST /sessions/{id}/reject", s.withMiddleware(s.handleReject))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request
// logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) sessionCacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *Server) invalidateSession(id int64) {
	key := s.sessionCacheKey(id)
	s.cashbookCache.Delete(key)
	s.summaryCache.Delete(key)
}
