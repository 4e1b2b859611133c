package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by who can correct it.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation"
	KindConsistency  Kind = "consistency"
	KindTransient    Kind = "transient"
)

// Domain errors
var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrLoanNotPayable        = errors.New("loan does not accept payments")
	ErrLoanNotCancellable    = errors.New("loan cannot be cancelled")
	ErrNoOutstandingBalance  = errors.New("no outstanding balance")
	ErrInvalidLoanAmount     = errors.New("invalid loan amount")
	ErrInvalidInterestRate   = errors.New("invalid interest rate")
	ErrInvalidPaymentAmount  = errors.New("invalid payment amount")
	ErrInvalidPaymentInput   = errors.New("invalid payment input")
	ErrBelowMinimumPayment   = errors.New("payment below minimum amount")
	ErrTermRequired          = errors.New("term is required for fixed term loans")
	ErrUnsupportedProduct    = errors.New("unsupported product type")
	ErrUnsupportedModality   = errors.New("unsupported modality")
	ErrOverdueNotSupported   = errors.New("overdue settlement requires a fixed term loan")
	ErrTooManyOverduePeriods = errors.New("requested more periods than are overdue")
	ErrInvalidMovement       = errors.New("invalid cash movement")
	ErrLedgerEntryMissing    = errors.New("ledger entry missing")
	ErrProcessingFailed      = errors.New("payment processing failed, please retry later")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf reports the kind of the first BusinessError in err's chain.
// Errors outside the taxonomy are transient.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindTransient
}

// IsClientError reports whether the caller can correct err by changing the request.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindInvalidState, KindValidation:
		return true
	}
	return false
}

// Error codes
const (
	ErrCodeLoanNotFound          = "LOAN_NOT_FOUND"
	ErrCodePaymentNotFound       = "PAYMENT_NOT_FOUND"
	ErrCodeLoanNotPayable        = "LOAN_NOT_PAYABLE"
	ErrCodeLoanNotCancellable    = "LOAN_NOT_CANCELLABLE"
	ErrCodeNoOutstandingBalance  = "NO_OUTSTANDING_BALANCE"
	ErrCodeInvalidLoanAmount     = "INVALID_LOAN_AMOUNT"
	ErrCodeInvalidInterestRate   = "INVALID_INTEREST_RATE"
	ErrCodeInvalidPaymentAmount  = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidPaymentInput   = "INVALID_PAYMENT_INPUT"
	ErrCodeBelowMinimumPayment   = "BELOW_MINIMUM_PAYMENT"
	ErrCodeTermRequired          = "TERM_REQUIRED"
	ErrCodeUnsupportedProduct    = "UNSUPPORTED_PRODUCT"
	ErrCodeUnsupportedModality   = "UNSUPPORTED_MODALITY"
	ErrCodeOverdueNotSupported   = "OVERDUE_NOT_SUPPORTED"
	ErrCodeTooManyOverduePeriods = "TOO_MANY_OVERDUE_PERIODS"
	ErrCodeInvalidMovement       = "INVALID_MOVEMENT"
	ErrCodeValidation            = "VALIDATION_FAILED"
	ErrCodeLedgerInconsistent    = "LEDGER_INCONSISTENT"
	ErrCodeProcessingFailed      = "PROCESSING_FAILED"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapLoanNotPayable(loanID, status string) *BusinessError {
	return NewBusinessError(
		KindInvalidState,
		ErrCodeLoanNotPayable,
		fmt.Sprintf("Loan with ID %s is %s and does not accept payments", loanID, status),
		ErrLoanNotPayable,
	)
}

func WrapLoanNotCancellable(loanID, reason string) *BusinessError {
	return NewBusinessError(
		KindInvalidState,
		ErrCodeLoanNotCancellable,
		fmt.Sprintf("Loan with ID %s cannot be cancelled: %s", loanID, reason),
		ErrLoanNotCancellable,
	)
}

func WrapNoOutstandingBalance(loanID string) *BusinessError {
	return NewBusinessError(
		KindInvalidState,
		ErrCodeNoOutstandingBalance,
		fmt.Sprintf("Loan with ID %s has no outstanding balance", loanID),
		ErrNoOutstandingBalance,
	)
}

func WrapInvalidLoanAmount(amount string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidLoanAmount,
		fmt.Sprintf("Invalid loan amount: %s", amount),
		ErrInvalidLoanAmount,
	)
}

func WrapInvalidInterestRate(rate string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidInterestRate,
		fmt.Sprintf("Invalid interest rate: %s", rate),
		ErrInvalidInterestRate,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapInvalidPaymentInput(reason string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidPaymentInput,
		reason,
		ErrInvalidPaymentInput,
	)
}

func WrapBelowMinimumPayment(minimum, actual string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeBelowMinimumPayment,
		fmt.Sprintf("Payment amount %s is below the minimum of %s", actual, minimum),
		ErrBelowMinimumPayment,
	)
}

func WrapTermRequired() *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeTermRequired,
		"Fixed term loans require a positive term",
		ErrTermRequired,
	)
}

func WrapUnsupportedProduct(product string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeUnsupportedProduct,
		fmt.Sprintf("Product type %q is not supported", product),
		ErrUnsupportedProduct,
	)
}

func WrapUnsupportedModality(modality string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeUnsupportedModality,
		fmt.Sprintf("Modality %q is not supported", modality),
		ErrUnsupportedModality,
	)
}

func WrapOverdueNotSupported(loanID string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeOverdueNotSupported,
		fmt.Sprintf("Loan with ID %s is not a fixed term loan", loanID),
		ErrOverdueNotSupported,
	)
}

func WrapTooManyOverduePeriods(requested, overdue int) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeTooManyOverduePeriods,
		fmt.Sprintf("Requested %d overdue periods but only %d are overdue", requested, overdue),
		ErrTooManyOverduePeriods,
	)
}

func WrapInvalidMovement(reason string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidMovement,
		reason,
		ErrInvalidMovement,
	)
}

func WrapValidation(err error) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeValidation,
		"request validation failed",
		err,
	)
}

// WrapLedgerEntryMissing reports a ledger that no longer matches the payments table.
func WrapLedgerEntryMissing(referenceType, referenceID string) *BusinessError {
	return NewBusinessError(
		KindConsistency,
		ErrCodeLedgerInconsistent,
		ErrProcessingFailed.Error(),
		fmt.Errorf("%w: no movement for %s %s", ErrLedgerEntryMissing, referenceType, referenceID),
	)
}

func WrapProcessingFailed(err error) *BusinessError {
	return NewBusinessError(
		KindTransient,
		ErrCodeProcessingFailed,
		ErrProcessingFailed.Error(),
		err,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindTransient,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}
