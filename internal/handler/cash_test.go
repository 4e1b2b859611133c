package handler

import (
	"net/http"
	"testing"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCashBalance(t *testing.T) {
	svc := &mockBillingService{}
	svc.On("CurrentCashBalance", mock.Anything).Return(decimal.RequireFromString("1500.25"), nil)

	rec := serve(newTestRouter(svc), http.MethodGet, "/api/v1/cash/balance", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance":"1500.25"}`, string(readEnvelope(t, rec).Data))
}

func TestListMovements_Paging(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 0, 0},
		{"explicit", "?limit=20&offset=40", 20, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBillingService{}
			svc.On("ListMovements", mock.Anything, tt.wantLimit, tt.wantOffset).
				Return([]*domain.CashMovement{{ID: 7, Type: domain.MovementDeposit}}, nil)

			rec := serve(newTestRouter(svc), http.MethodGet, "/api/v1/cash/movements"+tt.query, "", nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, string(readEnvelope(t, rec).Data), `"id":7`)
			svc.AssertExpectations(t)
		})
	}
}

func TestListMovements_BadQuery(t *testing.T) {
	svc := &mockBillingService{}

	rec := serve(newTestRouter(svc), http.MethodGet, "/api/v1/cash/movements?limit=ten", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_QUERY", readEnvelope(t, rec).Error)
	assert.Empty(t, svc.Calls)
}

func TestRecordMovement(t *testing.T) {
	svc := &mockBillingService{}
	svc.On("RecordMovement", mock.Anything, mock.MatchedBy(func(r *domain.RecordMovementRequest) bool {
		return r.Type == domain.MovementExpense && r.Amount.Equal(decimal.NewFromInt(320)) && r.Description == "office rent"
	}), "owner").Return(&domain.CashMovement{ID: 3, Type: domain.MovementExpense}, nil)

	rec := serve(newTestRouter(svc), http.MethodPost, "/api/v1/cash/movements",
		`{"type":"EXPENSE","amount":320,"description":"office rent"}`,
		map[string]string{ActorHeader: "owner"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestRecordMovement_OnlyManualTypes(t *testing.T) {
	for _, body := range []string{
		`{"type":"LOAN_DISBURSED","amount":10,"description":"x"}`,
		`{"type":"PAYMENT_RECEIVED","amount":10,"description":"x"}`,
		`{"type":"DEPOSIT","amount":0,"description":"x"}`,
		`{"type":"DEPOSIT","amount":10}`,
		`{"type":"DEPOSIT","amount":10.001,"description":"x"}`,
	} {
		svc := &mockBillingService{}
		rec := serve(newTestRouter(svc), http.MethodPost, "/api/v1/cash/movements", body, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Empty(t, svc.Calls, body)
	}
}
