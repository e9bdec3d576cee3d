package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/dashboard"
	"github.com/smarta/server/internal/middleware"
	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/phone"
	"github.com/smarta/server/internal/supabase"
)

// Messages shown by the views
const (
	msgNoTenant         = "No active tenant found. Please contact your landlord."
	msgDashboardFailed  = "Failed to load dashboard data"
	msgBillingFailed    = "Failed to load billing data"
	msgInvalidPhone     = "Please enter a valid Kenyan phone number (e.g., 254712345678)"
	msgPaymentFailed    = "Payment failed"
	msgStatusFailed     = "Failed to check payment status"
	msgPaymentsDisabled = "Payments are not available"
)

// Views is what the dashboard handlers need from the data access layer
type Views interface {
	Home(ctx context.Context, session *model.Session, timeframe dashboard.Timeframe) (*dashboard.HomeView, error)
	Bills(ctx context.Context, session *model.Session, filter dashboard.BillFilter) (*dashboard.BillsView, error)
	Purchase(ctx context.Context, session *model.Session) (*dashboard.PurchaseView, error)
	Pay(ctx context.Context, session *model.Session, billID uuid.UUID, phoneNumber string) (*dashboard.PayResult, error)
	CheckPaymentStatus(ctx context.Context, paymentID string) (*model.PaymentStatusResponse, error)
	Profile(session *model.Session) (*dashboard.ProfileView, error)
}

// DashboardHandler serves the gated tenant views
type DashboardHandler struct {
	views  Views
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(views Views, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{views: views, logger: logger}
}

// payRequest is the request body for POST /purchase/pay
type payRequest struct {
	BillID      string `json:"bill_id" validate:"required,uuid"`
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
}

// HandleHome handles GET /home?timeframe=weekly|monthly
func (h *DashboardHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	timeframe, err := dashboard.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, _ := middleware.GetSession(r.Context())

	view, err := h.views.Home(r.Context(), session, timeframe)
	if err != nil {
		h.viewError(w, r, err, msgDashboardFailed)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

// HandleBills handles GET /bills?filter=all|pending|paid|overdue
func (h *DashboardHandler) HandleBills(w http.ResponseWriter, r *http.Request) {
	filter, err := dashboard.ParseBillFilter(r.URL.Query().Get("filter"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, _ := middleware.GetSession(r.Context())

	view, err := h.views.Bills(r.Context(), session, filter)
	if err != nil {
		h.viewError(w, r, err, msgBillingFailed)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

// HandlePurchase handles GET /purchase
func (h *DashboardHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	view, err := h.views.Purchase(r.Context(), session)
	if err != nil {
		h.viewError(w, r, err, msgBillingFailed)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

// HandlePay handles POST /purchase/pay
func (h *DashboardHandler) HandlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	billID := uuid.MustParse(req.BillID) // validated above
	session, _ := middleware.GetSession(r.Context())

	result, err := h.views.Pay(r.Context(), session, billID, req.PhoneNumber)
	switch {
	case err == nil:
		respondJSON(w, h.logger, http.StatusOK, result)
	case errors.Is(err, phone.ErrInvalidPhone):
		respondWithError(w, http.StatusBadRequest, msgInvalidPhone)
	case errors.Is(err, dashboard.ErrBillNotPayable):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, supabase.ErrPaymentDeclined):
		respondWithError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, dashboard.ErrPaymentsUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, msgPaymentsDisabled)
	case errors.Is(err, supabase.ErrAPI):
		respondWithError(w, http.StatusBadGateway, err.Error())
	default:
		h.viewError(w, r, err, msgPaymentFailed)
	}
}

// HandlePaymentStatus handles GET /payments/{id}/status
func (h *DashboardHandler) HandlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.views.CheckPaymentStatus(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		respondJSON(w, h.logger, http.StatusOK, status)
	case r.Context().Err() != nil:
		return
	case errors.Is(err, dashboard.ErrPaymentsUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, msgPaymentsDisabled)
	default:
		h.logger.Warn("payment status check failed", "client_id", clientID(r), "payment_id", chi.URLParam(r, "id"), "error", err)
		respondWithError(w, http.StatusBadGateway, msgStatusFailed)
	}
}

// HandleProfile handles GET /profile
func (h *DashboardHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	view, err := h.views.Profile(session)
	if err != nil {
		h.viewError(w, r, err, msgDashboardFailed)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, view)
}

// viewError maps a view loader failure to a response. A request abandoned
// by its client gets no response at all.
func (h *DashboardHandler) viewError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case r.Context().Err() != nil:
		h.logger.Debug("view load abandoned", "path", r.URL.Path, "error", err)
	case errors.Is(err, dashboard.ErrNoTenant):
		respondWithError(w, http.StatusNotFound, msgNoTenant)
	case errors.Is(err, auth.ErrNoSession):
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
	default:
		h.logger.Error("view load failed", "client_id", clientID(r), "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func clientID(r *http.Request) string {
	id, _ := middleware.GetClientID(r.Context())
	return id
}
