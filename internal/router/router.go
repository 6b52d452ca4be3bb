package router

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-haven-core/internal/catalog"
	"github.com/ovaphlow/pitchfork/service-haven-core/internal/onboarding"
)

const (
	basePath        = "/haven-api"
	RequestIDHeader = "X-Request-ID"
)

type ctxKey struct{}

// RequestID returns the id RequestIDMiddleware attached to ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// loggingResponseWriter records the status and byte count of a response.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs each request at debug level.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// RequestIDMiddleware keeps an incoming X-Request-ID or mints a uuid, echoes
// it in the response and stores it in the request context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers. The API only
// serves JSON, so the content policy denies everything.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Handlers groups what RegisterRoutes mounts.
type Handlers struct {
	Onboarding *onboarding.Handler
	Catalog    *catalog.Handler
}

// RegisterRoutes mounts every route on a ServeMux and wraps it with the
// request id, logging and security header middleware.
func RegisterRoutes(logger *zap.SugaredLogger, h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+basePath+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET "+basePath+"/cities", h.Catalog.Cities)
	mux.HandleFunc("GET "+basePath+"/plans", h.Catalog.Plans)
	mux.HandleFunc("GET "+basePath+"/survey", h.Catalog.Survey)

	o := h.Onboarding
	mux.HandleFunc("POST "+basePath+"/auth/signup", o.SignUp)
	mux.HandleFunc("POST "+basePath+"/auth/signin", o.SignIn)
	mux.HandleFunc("POST "+basePath+"/auth/signout", o.Authed(o.SignOut))

	mux.HandleFunc("GET "+basePath+"/onboarding", o.Authed(o.Status))
	mux.HandleFunc("PUT "+basePath+"/onboarding/city", o.Authed(o.SelectCity))
	mux.HandleFunc("PUT "+basePath+"/onboarding/plan", o.Authed(o.SelectPlan))
	mux.HandleFunc("PUT "+basePath+"/onboarding/survey/answers/{questionID}", o.Authed(o.RecordAnswer))
	mux.HandleFunc("POST "+basePath+"/onboarding/survey/complete", o.Authed(o.CompleteSurvey))
	mux.HandleFunc("GET "+basePath+"/onboarding/entitlements", o.Authed(o.Entitlements))

	mux.HandleFunc("GET "+basePath+"/discovery/compatibility", o.Authed(o.Compatibility))

	return RequestIDMiddleware()(LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux)))
}
