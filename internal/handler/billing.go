package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/logger"
	customError "github.com/VictoRios99/prestamos-backend-sub000/pkg/errors"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	ActorHeader  = "X-Actor"
	defaultActor = "system"
)

// BillingService is the set of engine operations exposed over HTTP.
type BillingService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest, actor string) (*domain.CreateLoanResponse, error)
	GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetail, error)
	ListLoansWithStatus(ctx context.Context) ([]*domain.Loan, error)
	CancelLoan(ctx context.Context, loanID uuid.UUID, actor string) (*domain.Loan, error)
	ApplyPayment(ctx context.Context, loanID uuid.UUID, request *domain.MakePaymentRequest, actor string) (*domain.Payment, error)
	ReversePayment(ctx context.Context, paymentID uuid.UUID, actor string) error
	Classify(ctx context.Context) (*domain.LoanClassification, error)
	CurrentCashBalance(ctx context.Context) (decimal.Decimal, error)
	RecordMovement(ctx context.Context, request *domain.RecordMovementRequest, actor string) (*domain.CashMovement, error)
	ListMovements(ctx context.Context, limit, offset int) ([]*domain.CashMovement, error)
	ReconcileOverdue(ctx context.Context) (*domain.ReconcileResult, error)
}

type BillingHandler struct {
	service   BillingService
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewBillingHandler(service BillingService, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{
		service:   service,
		validator: newValidator(),
		logger:    logger,
	}
}

// RegisterRoutes mounts the billing endpoints on router.
func (h *BillingHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", h.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", h.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/cancel", h.CancelLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/payments", h.MakePayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/{paymentId}", h.ReversePayment).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard/loan-status", h.LoanStatusDashboard).Methods(http.MethodGet)

	api.HandleFunc("/cash/balance", h.CashBalance).Methods(http.MethodGet)
	api.HandleFunc("/cash/movements", h.ListMovements).Methods(http.MethodGet)
	api.HandleFunc("/cash/movements", h.RecordMovement).Methods(http.MethodPost)

	api.HandleFunc("/admin/reconcile-overdue", h.ReconcileOverdue).Methods(http.MethodPost)
}

// CreateLoan handles POST /api/v1/loans
func (h *BillingHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	created, err := h.service.CreateLoan(r.Context(), &request, actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, created)
}

// ListLoans handles GET /api/v1/loans
func (h *BillingHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoansWithStatus(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, loans)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *BillingHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	detail, err := h.service.GetLoanDetail(r.Context(), loanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, detail)
}

// CancelLoan handles POST /api/v1/loans/{loanId}/cancel
func (h *BillingHandler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	loan, err := h.service.CancelLoan(r.Context(), loanID, actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, loan)
}

// MakePayment handles POST /api/v1/loans/{loanId}/payments
func (h *BillingHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	var request domain.MakePaymentRequest
	if !h.decode(w, r, &request) {
		return
	}

	payment, err := h.service.ApplyPayment(r.Context(), loanID, &request, actorOf(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, payment)
}

// ReversePayment handles DELETE /api/v1/payments/{paymentId}
func (h *BillingHandler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathUUID(w, r, "paymentId")
	if !ok {
		return
	}

	if err := h.service.ReversePayment(r.Context(), paymentID, actorOf(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, map[string]string{"payment_id": paymentID.String(), "status": "reversed"})
}

// LoanStatusDashboard handles GET /api/v1/dashboard/loan-status
func (h *BillingHandler) LoanStatusDashboard(w http.ResponseWriter, r *http.Request) {
	classification, err := h.service.Classify(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, classification)
}

// ReconcileOverdue handles POST /api/v1/admin/reconcile-overdue
func (h *BillingHandler) ReconcileOverdue(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ReconcileOverdue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, result)
}

// decode reads a JSON body into dst and validates it. It writes the 400 itself
// and returns false when the request is unusable.
func (h *BillingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		response.BadRequest(w, "INVALID_REQUEST_BODY", "Invalid request body: "+err.Error())
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, customError.ErrCodeValidation, describeValidation(err))
		return false
	}
	return true
}

func (h *BillingHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		be = customError.WrapProcessingFailed(err)
	}

	status := statusFor(be.Kind)
	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context(), h.logger)
		log.Error().
			Err(err).
			Str("code", be.Code).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.InternalServerError(w, be.Code, customError.ErrProcessingFailed.Error())
		return
	}

	response.Error(w, status, be.Code, be.Message)
}

func statusFor(kind customError.Kind) int {
	switch kind {
	case customError.KindNotFound:
		return http.StatusNotFound
	case customError.KindInvalidState:
		return http.StatusConflict
	case customError.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func actorOf(r *http.Request) string {
	if actor := r.Header.Get(ActorHeader); actor != "" {
		return actor
	}
	return defaultActor
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "INVALID_ID", "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
