package ml

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrInvalidFeature         = errors.New("invalid feature value")
)

// FeatureCount is the length of every vector passed to a Classifier.
const FeatureCount = 4

type TransactionType int

const (
	CashOut TransactionType = iota + 1
	Payment
	CashIn
	Transfer
	Debit
)

// TransactionTypes lists every type in selector order.
func TransactionTypes() []TransactionType {
	return []TransactionType{CashOut, Payment, CashIn, Transfer, Debit}
}

// Code is the integer the classifier was trained on.
func (t TransactionType) Code() (int, error) {
	switch t {
	case CashOut:
		return 1, nil
	case Payment:
		return 2, nil
	case CashIn:
		return 3, nil
	case Transfer:
		return 4, nil
	case Debit:
		return 5, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownTransactionType, int(t))
}

func (t TransactionType) String() string {
	switch t {
	case CashOut:
		return "CASH_OUT"
	case Payment:
		return "PAYMENT"
	case CashIn:
		return "CASH_IN"
	case Transfer:
		return "TRANSFER"
	case Debit:
		return "DEBIT"
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

func ParseTransactionType(label string) (TransactionType, error) {
	for _, t := range TransactionTypes() {
		if t.String() == label {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTransactionType, label)
}

func (t TransactionType) MarshalText() ([]byte, error) {
	if _, err := t.Code(); err != nil {
		return nil, err
	}
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FeatureVector is one classifier sample:
// [type_code, amount, old_balance_orig, new_balance_orig].
type FeatureVector struct {
	TypeCode       int
	Amount         float64
	OldBalanceOrig float64
	NewBalanceOrig float64
}

// NewFeatureVector applies the input floor (finite, >= 0) and nothing else;
// balances are not checked against each other.
func NewFeatureVector(t TransactionType, amount, oldBalance, newBalance float64) (FeatureVector, error) {
	code, err := t.Code()
	if err != nil {
		return FeatureVector{}, err
	}
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"amount", amount},
		{"old_balance", oldBalance},
		{"new_balance", newBalance},
	} {
		if err := ValidateAmount(field.value); err != nil {
			return FeatureVector{}, fmt.Errorf("%s: %w", field.name, err)
		}
	}
	return FeatureVector{
		TypeCode:       code,
		Amount:         amount,
		OldBalanceOrig: oldBalance,
		NewBalanceOrig: newBalance,
	}, nil
}

// ValidateAmount is the floor shared by all three numeric inputs.
func ValidateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: must be a number >= 0, got %v", ErrInvalidFeature, v)
	}
	return nil
}

func (v FeatureVector) Values() []float64 {
	return []float64{float64(v.TypeCode), v.Amount, v.OldBalanceOrig, v.NewBalanceOrig}
}
