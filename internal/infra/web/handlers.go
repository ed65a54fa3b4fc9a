package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/infra/logging"
	rediscache "content-marketplace/internal/infra/redis"
	"content-marketplace/internal/usecase"
)

const maxBodyBytes = 1 << 20

func checkoutLimitKey(r *http.Request) string {
	id := identityFrom(r.Context())
	if id == nil {
		return ""
	}
	return rediscache.UserActionKey(id.UserIdentifier, "checkout")
}

// ===== Checkout =====

type checkoutResponse struct {
	URL              string `json:"url"`
	SessionID        string `json:"sessionId,omitempty"`
	AlreadyPurchased bool   `json:"alreadyPurchased,omitempty"`
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.deps.Checkout.Initiate(r.Context(), identityFrom(r.Context()), req)
	if err != nil {
		status, msg := checkoutStatus(err)
		if status >= http.StatusInternalServerError {
			l := logging.With(r.Context(), s.log)
			l.Error().Err(err).Str("content_id", req.ContentID).Msg("checkout failed")
		}
		http.Error(w, msg, status)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{URL: res.URL, SessionID: res.SessionID, AlreadyPurchased: res.AlreadyPurchased})
}

func checkoutStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrContentNotFound):
		return http.StatusNotFound, "Content not found"
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway, "Payment provider unavailable"
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, "Content catalog unavailable"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// ===== Payment webhook =====

func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Webhook Error: unreadable body", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get(s.deps.Events.SignatureHeader())

	outcome, err := s.deps.Events.Handle(r.Context(), body, sig)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": outcome})
	case errors.Is(err, domain.ErrMissingSignature):
		http.Error(w, "Missing signature", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrAuthenticity):
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
	default:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("webhook processing failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ===== Catalog & reader =====

type contentListing struct {
	Articles []*model.Article `json:"articles"`
	Books    []*model.Book    `json:"books"`
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	articles, err := s.deps.Catalog.ListArticles(r.Context())
	if err != nil {
		s.catalogError(w, r, err)
		return
	}
	books, err := s.deps.Catalog.ListBooks(r.Context())
	if err != nil {
		s.catalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contentListing{Articles: articles, Books: books})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Catalog.GetArticle(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.catalogError(w, r, err)
		return
	}
	if a.IsPaid() && !s.guard(w, r, a.ID, model.ContentTypeArticle) {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type chapterSummary struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Order int    `json:"order"`
	Free  bool   `json:"free"`
}

type bookOverview struct {
	*model.Book
	Chapters []chapterSummary `json:"chapters"`
}

func overview(b *model.Book) bookOverview {
	out := bookOverview{Book: b, Chapters: make([]chapterSummary, 0, len(b.Chapters))}
	for _, c := range b.Chapters {
		out.Chapters = append(out.Chapters, chapterSummary{Slug: c.Slug, Title: c.Title, Order: c.Order, Free: c.Free})
	}
	return out
}

// handleBook is the public preview/purchase page; bodies are never included.
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Catalog.GetBook(r.Context(), chi.URLParam(r, "bookSlug"))
	if err != nil {
		s.catalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview(b))
}

type chapterPage struct {
	Book    bookOverview   `json:"book"`
	Chapter *model.Chapter `json:"chapter"`
	Prev    string         `json:"prev,omitempty"`
	Next    string         `json:"next,omitempty"`
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Catalog.GetBook(r.Context(), chi.URLParam(r, "bookSlug"))
	if err != nil {
		s.catalogError(w, r, err)
		return
	}
	ch, idx := b.Chapter(chi.URLParam(r, "chapterSlug"))
	if ch == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if b.IsPaid() && !ch.Free && !s.guard(w, r, b.ID, model.ContentTypeBook) {
		return
	}

	page := chapterPage{Book: overview(b), Chapter: ch}
	if idx > 0 {
		page.Prev = b.Chapters[idx-1].Slug
	}
	if idx < len(b.Chapters)-1 {
		page.Next = b.Chapters[idx+1].Slug
	}
	writeJSON(w, http.StatusOK, page)
}

// guard runs the access check and writes the denial. It reports whether the
// caller may render the full content.
func (s *Server) guard(w http.ResponseWriter, r *http.Request, contentID string, t model.ContentType) bool {
	d, err := s.deps.Access.CheckAccess(r.Context(), identityFrom(r.Context()), contentID, t)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("content_id", contentID).Msg("access check failed")
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return false
	}
	if d.Granted {
		return true
	}
	target := d.RedirectTarget
	if target == usecase.SignInPath {
		target += "?callbackUrl=" + url.QueryEscape(r.URL.Path)
	}
	http.Redirect(w, r, target, http.StatusFound)
	return false
}

func (s *Server) catalogError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrContentNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	l := logging.With(r.Context(), s.log)
	l.Error().Err(err).Msg("catalog read failed")
	http.Error(w, "Content catalog unavailable", http.StatusServiceUnavailable)
}

// ===== Library =====

type purchaseStatus struct {
	Purchased bool                  `json:"purchased"`
	Purchase  *model.PurchaseRecord `json:"purchase,omitempty"`
}

func (s *Server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Library.Lookup(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "contentId"))
	if err != nil {
		s.libraryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchaseStatus{Purchased: rec != nil, Purchase: rec})
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.Library.List(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.libraryError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*model.PurchaseRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (s *Server) libraryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrInvalidRequest):
		http.Error(w, "Invalid request", http.StatusBadRequest)
	default:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("purchase lookup failed")
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	}
}

// ===== Auth =====

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if !s.deps.OAuth.Enabled() {
		http.Error(w, "Sign-in is not configured", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, s.deps.OAuth.Begin(w, r.URL.Query().Get("callbackUrl")), http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !s.deps.OAuth.Enabled() {
		http.Error(w, "Sign-in is not configured", http.StatusServiceUnavailable)
		return
	}
	id, returnTo, err := s.deps.OAuth.Complete(r.Context(), w, r)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Msg("sign-in failed")
		http.Error(w, "Sign-in failed", http.StatusBadRequest)
		return
	}
	if _, err := s.deps.Auth.Mint(w, *id); err != nil {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("session mint failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": identityFrom(r.Context())})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ===== Dev payments =====

// handleDevPay plays the gateway: it settles the session, delivers the signed
// event through the real webhook path and lands the buyer on the content.
func (s *Server) handleDevPay(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = model.PaymentStatusPaid
	}
	body, sig, req, err := s.deps.DevPay.CompleteSession(chi.URLParam(r, "sessionID"), status)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	outcome, err := s.deps.Events.Handle(r.Context(), body, sig)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("dev payment delivery failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	l := logging.With(r.Context(), s.log)
	l.Debug().Str("outcome", string(outcome)).Msg("dev payment delivered")

	http.Redirect(w, r, usecase.ContentURL(s.opts.BaseURL, req.ContentType, req.ContentID)+"?success=true", http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
