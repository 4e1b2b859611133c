package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		client bool
	}{
		{"not found", WrapLoanNotFound("abc"), KindNotFound, true},
		{"invalid state", WrapLoanNotPayable("abc", "PAID"), KindInvalidState, true},
		{"validation", WrapBelowMinimumPayment("1500", "10"), KindValidation, true},
		{"consistency", WrapLedgerEntryMissing("payment", "p-1"), KindConsistency, false},
		{"transient", WrapDatabaseError(errors.New("timeout")), KindTransient, false},
		{"wrapped business error", fmt.Errorf("apply: %w", WrapPaymentNotFound("p")), KindNotFound, true},
		{"plain error", errors.New("boom"), KindTransient, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.client, IsClientError(tt.err))
		})
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	assert.ErrorIs(t, WrapLoanNotFound("x"), ErrLoanNotFound)
	assert.ErrorIs(t, WrapTooManyOverduePeriods(3, 1), ErrTooManyOverduePeriods)
	assert.ErrorIs(t, WrapLedgerEntryMissing("loan", "x"), ErrLedgerEntryMissing)

	cause := errors.New("connection refused")
	assert.ErrorIs(t, WrapProcessingFailed(cause), cause)
}

func TestLedgerEntryMissingHidesCause(t *testing.T) {
	err := WrapLedgerEntryMissing("payment", "p-9")

	assert.Equal(t, ErrProcessingFailed.Error(), err.Message)
	assert.Contains(t, err.Error(), "p-9")
}

func TestBusinessErrorString(t *testing.T) {
	assert.Equal(t, "TERM_REQUIRED: Fixed term loans require a positive term (term is required for fixed term loans)", WrapTermRequired().Error())
	assert.Equal(t, "X: y", NewBusinessError(KindValidation, "X", "y", nil).Error())
}
