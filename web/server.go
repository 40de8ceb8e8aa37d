// Package web serves the checkout screen and the checkout session endpoint.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"checkout/logic"
	"checkout/payments"
)

const (
	basketCookie = "basket_id"
	maxBodyBytes = int64(65536)

	defaultBasketCapacity = 1024
	defaultPageCacheSize  = 256
)

// Options wires the server to its collaborators.
type Options struct {
	// Sessions backs POST /checkout-session. Without it the route is not served.
	Sessions payments.SessionService
	// Checkout is what the checkout view calls to obtain a session.
	// Defaults to calling Sessions in-process.
	Checkout logic.SessionCreator
	// Pages resolves sessions to hosted payment pages. Defaults to a cache
	// backed by Sessions.
	Pages          *payments.HostedPages
	BasketCapacity int
	Logger         *zap.Logger
}

type Server struct {
	sessions  payments.SessionService
	pages     *payments.HostedPages
	registry  *Registry
	templates *template.Template
	logger    *zap.Logger
}

func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pages := opts.Pages
	if pages == nil {
		var lookup payments.SessionLookup
		if opts.Sessions != nil {
			lookup = opts.Sessions
		}
		var err error
		if pages, err = payments.NewHostedPages(defaultPageCacheSize, lookup); err != nil {
			return nil, err
		}
	}

	checkout := opts.Checkout
	if checkout == nil {
		if opts.Sessions == nil {
			return nil, errors.New("web: either Sessions or Checkout is required")
		}
		checkout = payments.NewLocalSessions(opts.Sessions, logger)
	}

	capacity := opts.BasketCapacity
	if capacity <= 0 {
		capacity = defaultBasketCapacity
	}
	registry, err := NewRegistry(capacity, pages.Track(checkout), logger)
	if err != nil {
		return nil, err
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		sessions:  opts.Sessions,
		pages:     pages,
		registry:  registry,
		templates: templates,
		logger:    logger,
	}, nil
}

func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Route("/checkout", func(r chi.Router) {
		r.Get("/", s.handleCheckoutPage)
		r.Post("/", s.handleStartCheckout)
	})
	r.Route("/basket/items", func(r chi.Router) {
		r.Post("/", s.handleAddItem)
		r.Post("/{id}/remove", s.handleRemoveItem)
	})
	r.Get("/success", s.handleSuccess)
	if s.sessions != nil {
		r.Post("/checkout-session", s.handleCreateSession)
	}
	return r
}

func (s *Server) visitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(basketCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     basketCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func backToCheckout(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := s.visitorID(w, r)
	s.render(w, http.StatusOK, "index.html", pageData{
		Title:    "Store",
		BagCount: s.registry.Basket(id).Len(),
	})
}

func (s *Server) handleCheckoutPage(w http.ResponseWriter, r *http.Request) {
	id := s.visitorID(w, r)
	view := s.registry.Mount(id)
	s.render(w, http.StatusOK, "checkout.html", pageData{Title: "Shopping Bag", Checkout: view.Page()})
}

func (s *Server) handleStartCheckout(w http.ResponseWriter, r *http.Request) {
	id := s.visitorID(w, r)
	view := s.registry.View(id)

	// The page offers no checkout button for an empty bag or while busy.
	if view.Empty() {
		backToCheckout(w, r)
		return
	}
	if view.Busy() {
		s.logger.Info(logic.ErrMsgCheckoutInFlight, zap.String("basket_id", id))
		backToCheckout(w, r)
		return
	}

	redirector := &pageRedirector{w: w, r: r, pages: s.pages}
	if err := view.StartCheckout(r.Context(), redirector); err != nil {
		// Render the view as it stands. A session failure keeps it busy
		// until the page is loaded again.
		s.render(w, http.StatusOK, "checkout.html", pageData{Title: "Shopping Bag", Checkout: view.Page()})
		return
	}
	// The customer has left for the hosted page.
	s.registry.Release(id, view)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req payments.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, logic.CheckoutSession{
			StatusCode: http.StatusBadRequest,
			Message:    logic.ErrMsgMalformedRequest,
		})
		return
	}

	session, err := s.sessions.Create(r.Context(), req.Items)
	if err != nil {
		var checkoutErr *logic.CheckoutError
		if errors.As(err, &checkoutErr) && checkoutErr.Kind == logic.KindInvalidItem {
			writeJSON(w, http.StatusBadRequest, logic.CheckoutSession{
				StatusCode: http.StatusBadRequest,
				Message:    checkoutErr.Message,
			})
			return
		}
		s.logger.Error("create checkout session", zap.Int("items", len(req.Items)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, logic.CheckoutSession{
			StatusCode: logic.StatusInternalError,
			Message:    err.Error(),
		})
		return
	}

	s.pages.Remember(session)
	writeJSON(w, http.StatusOK, session)
}

type basketResponse struct {
	Items []logic.BasketItem `json:"items"`
	Total json.Number        `json:"total"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id := s.visitorID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	wantsJSON := isJSON(r)
	item, err := decodeItem(r, wantsJSON)
	if err == nil {
		err = s.registry.Basket(id).Add(item)
	}
	if err != nil {
		msg := logic.ErrMsgMalformedRequest
		var checkoutErr *logic.CheckoutError
		if errors.As(err, &checkoutErr) {
			msg = checkoutErr.Message
		}
		if wantsJSON {
			writeJSON(w, http.StatusBadRequest, logic.CheckoutSession{StatusCode: http.StatusBadRequest, Message: msg})
			return
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	if wantsJSON {
		basket := s.registry.Basket(id)
		items := basket.Items()
		if items == nil {
			items = []logic.BasketItem{}
		}
		writeJSON(w, http.StatusCreated, basketResponse{Items: items, Total: json.Number(basket.Total().String())})
		return
	}
	backToCheckout(w, r)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := s.visitorID(w, r)
	s.registry.Basket(id).Remove(chi.URLParam(r, "id"))
	backToCheckout(w, r)
}

func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	id := s.visitorID(w, r)
	sessionID := r.URL.Query().Get("session_id")

	s.registry.Basket(id).Clear()
	s.registry.Discard(id)
	s.logger.Info("checkout completed", zap.String("basket_id", id), zap.String("session_id", sessionID))

	s.render(w, http.StatusOK, "success.html", pageData{Title: "Thank you", SessionID: sessionID})
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func decodeItem(r *http.Request, fromJSON bool) (logic.BasketItem, error) {
	if fromJSON {
		var item logic.BasketItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			return logic.BasketItem{}, err
		}
		return item, nil
	}

	if err := r.ParseForm(); err != nil {
		return logic.BasketItem{}, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.PostForm.Get("price")))
	if err != nil {
		return logic.BasketItem{}, err
	}
	return logic.BasketItem{
		ID:    r.PostForm.Get("id"),
		Name:  r.PostForm.Get("name"),
		Price: price,
		Image: r.PostForm.Get("image"),
	}, nil
}
