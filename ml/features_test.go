package ml

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestTransactionTypeCodesAreUnique(t *testing.T) {
	seen := make(map[int]TransactionType)
	for _, typ := range TransactionTypes() {
		code, err := typ.Code()
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", typ, err)
		}
		if code < 1 || code > 5 {
			t.Fatalf("code %d for %s outside 1..5", code, typ)
		}
		if prev, ok := seen[code]; ok {
			t.Fatalf("code %d shared by %s and %s", code, prev, typ)
		}
		seen[code] = typ
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 codes, got %d", len(seen))
	}
}

func TestTransactionTypeMapping(t *testing.T) {
	expected := map[string]int{"CASH_OUT": 1, "PAYMENT": 2, "CASH_IN": 3, "TRANSFER": 4, "DEBIT": 5}
	for label, want := range expected {
		typ, err := ParseTransactionType(label)
		if err != nil {
			t.Fatalf("parse %s: %v", label, err)
		}
		code, _ := typ.Code()
		if code != want {
			t.Fatalf("%s: expected %d, got %d", label, want, code)
		}
	}
}

func TestParseTransactionTypeUnknown(t *testing.T) {
	for _, label := range []string{"", "transfer", "WIRE"} {
		if _, err := ParseTransactionType(label); !errors.Is(err, ErrUnknownTransactionType) {
			t.Fatalf("%q: expected ErrUnknownTransactionType, got %v", label, err)
		}
	}
	if _, err := TransactionType(9).Code(); !errors.Is(err, ErrUnknownTransactionType) {
		t.Fatalf("expected ErrUnknownTransactionType, got %v", err)
	}
}

func TestFeatureVectorOrder(t *testing.T) {
	vec, err := NewFeatureVector(Transfer, 5000, 10000, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{4, 5000, 10000, 5000}
	if !reflect.DeepEqual(vec.Values(), want) {
		t.Fatalf("expected %v, got %v", want, vec.Values())
	}
}

func TestFeatureVectorNoCrossFieldChecks(t *testing.T) {
	// new balance higher than old minus amount is accepted as-is
	vec, err := NewFeatureVector(Payment, 100, 0, 99999.99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec.NewBalanceOrig != 99999.99 {
		t.Fatalf("value changed: %v", vec.NewBalanceOrig)
	}
}

func TestFeatureVectorFloor(t *testing.T) {
	cases := []struct {
		name                  string
		amount, old, newValue float64
	}{
		{"negative amount", -0.01, 0, 0},
		{"negative old", 0, -1, 0},
		{"negative new", 0, 0, -1},
		{"nan", math.NaN(), 0, 0},
		{"inf", math.Inf(1), 0, 0},
	}
	for _, tc := range cases {
		if _, err := NewFeatureVector(CashIn, tc.amount, tc.old, tc.newValue); !errors.Is(err, ErrInvalidFeature) {
			t.Fatalf("%s: expected ErrInvalidFeature, got %v", tc.name, err)
		}
	}
	if _, err := NewFeatureVector(Debit, 0, 0, 0); err != nil {
		t.Fatalf("zero values must be accepted: %v", err)
	}
}

func TestTransactionTypeText(t *testing.T) {
	var typ TransactionType
	if err := typ.UnmarshalText([]byte("CASH_OUT")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != CashOut {
		t.Fatalf("expected CashOut, got %v", typ)
	}
	text, err := Debit.MarshalText()
	if err != nil || string(text) != "DEBIT" {
		t.Fatalf("unexpected marshal result %q, %v", text, err)
	}
}
