package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
	"content-marketplace/internal/infra/logging"
	"content-marketplace/internal/usecase"
)

// DevPaymentCompleter settles a pending session and returns the signed
// delivery the gateway would have sent. Only the noop gateway implements it.
type DevPaymentCompleter interface {
	CompleteSession(sessionID, paymentStatus string) (body []byte, signature string, req adapter.SessionRequest, err error)
}

// Deps are the collaborators the HTTP surface dispatches to. Limiter, OAuth
// and DevPay are optional.
type Deps struct {
	Checkout usecase.CheckoutUseCase
	Events   usecase.PaymentEventUseCase
	Access   usecase.AccessUseCase
	Library  usecase.LibraryUseCase
	Catalog  adapter.ContentCatalog
	Auth     *AuthManager
	OAuth    *GitHubOAuth
	Limiter  RateLimiter
	DevPay   DevPaymentCompleter
}

type Options struct {
	BaseURL            string
	RequestTimeout     time.Duration
	CheckoutRateWindow time.Duration
	Dev                bool
}

type Server struct {
	deps Deps
	opts Options
	log  *zerolog.Logger
}

func NewServer(deps Deps, opts Options, logger *zerolog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.CheckoutRateWindow <= 0 {
		opts.CheckoutRateWindow = time.Minute
	}
	return &Server{deps: deps, opts: opts, log: logger}
}

// Routes builds the router with the full middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.opts.RequestTimeout), s.identify)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(RateLimit(s.deps.Limiter, s.opts.CheckoutRateWindow, checkoutLimitKey, s.log)).
			Post("/create-checkout-session", s.handleCreateCheckout)
		r.Post("/webhooks/payment", s.handlePaymentWebhook)

		r.Get("/content", s.handleListContent)
		r.Get("/purchases", s.handleListPurchases)
		r.Get("/purchases/{contentId}", s.handleGetPurchase)

		r.Get("/auth/signin", s.handleSignIn)
		r.Get("/auth/callback/github", s.handleOAuthCallback)
		r.Get("/auth/session", s.handleSession)
		r.Get("/auth/signout", s.handleSignOut)
		r.Post("/auth/signout", s.handleSignOut)
	})

	r.Get("/posts/{slug}", s.handleArticle)
	r.Get("/books/{bookSlug}", s.handleBook)
	r.Get("/books/{bookSlug}/{chapterSlug}", s.handleChapter)

	if s.opts.Dev && s.deps.DevPay != nil {
		r.Get("/dev/pay/{sessionID}", s.handleDevPay)
	}
	return r
}

type ctxKey int

const identityKey ctxKey = iota

// identify resolves the session once per request.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		id := s.deps.Auth.Current(r)
		if id == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		ctx = logging.WithUserID(ctx, logging.Redact(id.UserIdentifier, s.opts.Dev))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(identityKey).(*model.Identity)
	return id
}
