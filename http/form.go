package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fraudcheck/fraud"
	"fraudcheck/ml"
)

const (
	fieldType       = "type"
	fieldAmount     = "amount"
	fieldOldBalance = "old_balance_orig"
	fieldNewBalance = "new_balance_orig"
)

var errInvalidInput = errors.New("invalid input")

// formValues 回显到表单中的原始输入
type formValues struct {
	Type       string
	Amount     string
	OldBalance string
	NewBalance string
}

func defaultFormValues() formValues {
	first := ml.TransactionTypes()[0]
	return formValues{
		Type:       first.String(),
		Amount:     "0.00",
		OldBalance: "0.00",
		NewBalance: "0.00",
	}
}

// parseSubmission 解析表单提交，只检查类型标签和数值下限
func parseSubmission(values url.Values) (fraud.Submission, formValues, error) {
	form := formValues{
		Type:       strings.TrimSpace(values.Get(fieldType)),
		Amount:     strings.TrimSpace(values.Get(fieldAmount)),
		OldBalance: strings.TrimSpace(values.Get(fieldOldBalance)),
		NewBalance: strings.TrimSpace(values.Get(fieldNewBalance)),
	}

	typ, err := ml.ParseTransactionType(form.Type)
	if err != nil {
		return fraud.Submission{}, form, fmt.Errorf("%w: %v", errInvalidInput, err)
	}

	sub := fraud.Submission{Type: typ}
	for _, field := range []struct {
		label string
		raw   *string
		dst   *float64
	}{
		{"Amount", &form.Amount, &sub.Amount},
		{"Old Balance (Originator)", &form.OldBalance, &sub.OldBalance},
		{"New Balance (Originator)", &form.NewBalance, &sub.NewBalance},
	} {
		v, err := parseAmount(*field.raw)
		if err != nil {
			return fraud.Submission{}, form, fmt.Errorf("%w: %s %v", errInvalidInput, field.label, err)
		}
		*field.dst = v
		*field.raw = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return sub, form, nil
}

// parseAmount 空值视为0.00，与输入控件默认值一致
func parseAmount(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a number, got %q", raw)
	}
	if err := ml.ValidateAmount(v); err != nil {
		return 0, errors.New("must be a number >= 0.00")
	}
	return v, nil
}
