package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"fraudcheck/fraud"
)

func postForm(t *testing.T, handler http.Handler, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func transferForm() url.Values {
	return url.Values{
		fieldType:       {"TRANSFER"},
		fieldAmount:     {"5000"},
		fieldOldBalance: {"10000"},
		fieldNewBalance: {"5000"},
	}
}

func TestHealthHandler(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeModel{labels: []int{0}}, nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, true, payload["model_loaded"])
}

func TestIndexRendersForm(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeModel{labels: []int{0}}, nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Online Fraud Detection")
	assert.Contains(t, body, `<form method="post" action="/predict">`)
	for _, label := range []string{"CASH_OUT", "PAYMENT", "CASH_IN", "TRANSFER", "DEBIT"} {
		assert.Contains(t, body, `<option value="`+label+`"`)
	}
	assert.Contains(t, body, `min="0" step="0.01" value="0.00"`)
	assert.NotContains(t, body, `id="model-warning"`)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestIndexWithoutModelShowsWarning(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Model could not be loaded. Predictions are disabled.")
	assert.NotContains(t, body, "<form")

	w := postForm(t, handler, transferForm())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `id="model-warning"`)
}

func TestPredictFormFraud(t *testing.T) {
	model := &fakeModel{labels: []int{1}}
	handler, _ := newTestHandler(t, model, nil)

	w := postForm(t, handler, transferForm())
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `id="verdict-fraud"`)
	assert.Contains(t, body, "Alert: This transaction is likely FRAUDULENT.")
	assert.Contains(t, body, "Please investigate further before processing.")
	assert.Contains(t, body, "5,000.00")
	assert.Contains(t, body, "10,000.00")
	// submitted values are echoed back
	assert.Contains(t, body, `<option value="TRANSFER" selected>`)
	assert.Contains(t, body, `value="10000.00"`)

	require.Len(t, model.samples, 1)
	assert.Equal(t, []float64{4, 5000, 10000, 5000}, model.samples[0])
}

func TestPredictFormLegitimate(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeModel{labels: []int{0}}, nil)

	w := postForm(t, handler, transferForm())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="verdict-legitimate"`)
	assert.Contains(t, w.Body.String(), "This transaction appears to be legitimate.")
	assert.NotContains(t, w.Body.String(), "FRAUDULENT")
}

func TestPredictFormPredictionError(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeModel{err: errors.New("model exploded")}, nil)

	w := postForm(t, handler, transferForm())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="prediction-error"`)
	assert.Contains(t, w.Body.String(), "Prediction error: model exploded")

	// the form stays usable
	assert.Contains(t, w.Body.String(), `<form method="post" action="/predict">`)
}

func TestPredictFormInputFloor(t *testing.T) {
	model := &fakeModel{labels: []int{0}}
	handler, _ := newTestHandler(t, model, nil)

	cases := map[string]url.Values{
		"negative": {fieldType: {"DEBIT"}, fieldAmount: {"-1"}},
		"text":     {fieldType: {"DEBIT"}, fieldOldBalance: {"lots"}},
		"nan":      {fieldType: {"DEBIT"}, fieldNewBalance: {"NaN"}},
		"type":     {fieldType: {"WIRE"}},
	}
	for name, values := range cases {
		w := postForm(t, handler, values)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.Contains(t, w.Body.String(), `id="input-error"`, name)
	}
	assert.Empty(t, model.samples)
}

func TestPredictFormEmptyNumbersDefaultToZero(t *testing.T) {
	model := &fakeModel{labels: []int{0}}
	handler, _ := newTestHandler(t, model, nil)

	w := postForm(t, handler, url.Values{fieldType: {"CASH_IN"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, model.samples, 1)
	assert.Equal(t, []float64{3, 0, 0, 0}, model.samples[0])
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAmountPrinter(t *testing.T) {
	assert.Equal(t, "5,000.00", newAmountPrinter(language.English).Format(5000))
	assert.Equal(t, "0.50", newAmountPrinter(language.English).Format(0.5))
}

func TestNewServerAddr(t *testing.T) {
	config := DefaultServerConfig()
	config.Port = 9191
	server := NewServer(config, Deps{Detector: fraud.New(nil)})
	assert.Equal(t, ":9191", server.Addr())
}
