package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudcheck/db"
	"fraudcheck/fraud"
	"fraudcheck/ml"
	"fraudcheck/monitoring"
)

type fakeModel struct {
	labels  []int
	err     error
	samples [][]float64
}

func (f *fakeModel) Predict(samples [][]float64) ([]int, error) {
	f.samples = append(f.samples, samples...)
	return f.labels, f.err
}

func newTestHandler(t *testing.T, classifier ml.Classifier, store *db.Store) (http.Handler, *monitoring.MetricsCollector) {
	t.Helper()
	metrics := monitoring.NewMetricsCollector()
	sinks := []fraud.Sink{metrics}
	if store != nil {
		sinks = append(sinks, store)
	}
	detector := fraud.New(classifier, fraud.WithSinks(sinks...))
	handler := NewHandler(DefaultServerConfig(), Deps{Detector: detector, Metrics: metrics, Store: store})
	return handler, metrics
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHandlePredict(t *testing.T) {
	model := &fakeModel{labels: []int{1}}
	handler, metrics := newTestHandler(t, model, nil)

	w := postJSON(t, handler, "/api/predict", `{"type":"TRANSFER","amount":5000,"old_balance":10000,"new_balance":5000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var payload predictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, fraud.StateRendered, payload.State)
	require.NotNil(t, payload.Label)
	assert.Equal(t, 1, *payload.Label)
	assert.Equal(t, "fraud", payload.Verdict)
	assert.Equal(t, []float64{4, 5000, 10000, 5000}, payload.Features)
	assert.NotEmpty(t, payload.RequestID)

	require.Len(t, model.samples, 1)
	assert.Equal(t, []float64{4, 5000, 10000, 5000}, model.samples[0])
	assert.Equal(t, int64(1), metrics.Snapshot().Fraud)
}

func TestHandlePredictFailure(t *testing.T) {
	handler, metrics := newTestHandler(t, &fakeModel{err: errors.New("X has 3 features, but model expects 4")}, nil)

	w := postJSON(t, handler, "/api/predict", `{"type":"CASH_OUT","amount":1,"old_balance":1,"new_balance":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var payload predictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, fraud.StateErrorDisplayed, payload.State)
	assert.Contains(t, payload.Message, "X has 3 features")
	assert.Nil(t, payload.Label)
	assert.Equal(t, int64(1), metrics.Snapshot().Failures)
}

func TestHandlePredictBadInput(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeModel{labels: []int{0}}, nil)

	cases := map[string]string{
		"unknown type":  `{"type":"WIRE","amount":1}`,
		"missing type":  `{"amount":1}`,
		"negative":      `{"type":"DEBIT","amount":-5}`,
		"unknown field": `{"type":"DEBIT","amount":1,"dest":"x"}`,
		"not json":      `type=DEBIT`,
	}
	for name, body := range cases {
		w := postJSON(t, handler, "/api/predict", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestHandlePredictWithoutModel(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)

	w := postJSON(t, handler, "/api/predict", `{"type":"DEBIT","amount":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleTransactionTypes(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeModel{labels: []int{0}}, nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/transaction-types", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var types []transactionTypeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.Equal(t, []transactionTypeResponse{
		{"CASH_OUT", 1}, {"PAYMENT", 2}, {"CASH_IN", 3}, {"TRANSFER", 4}, {"DEBIT", 5},
	}, types)
}

func TestHandleRecentVerdicts(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer store.Close()

	handler, _ := newTestHandler(t, &fakeModel{labels: []int{0}}, store)
	postJSON(t, handler, "/api/predict", `{"type":"PAYMENT","amount":20,"old_balance":100,"new_balance":80}`)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/verdicts/recent?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Verdicts []db.VerdictRecord    `json:"verdicts"`
		Count    int                   `json:"count"`
		Totals   map[fraud.Verdict]int `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, ml.Payment, payload.Verdicts[0].Type)
	assert.Equal(t, fraud.VerdictLegitimate, payload.Verdicts[0].Verdict)
	assert.Equal(t, map[fraud.Verdict]int{fraud.VerdictLegitimate: 1}, payload.Totals)
}

func TestHandleRecentVerdictsDisabled(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeModel{labels: []int{0}}, nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/verdicts/recent", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleStats(t *testing.T) {
	handler, metrics := newTestHandler(t, &fakeModel{labels: []int{0}}, nil)
	require.NoError(t, metrics.Record(context.Background(), fraud.Outcome{State: fraud.StateRendered}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot monitoring.MetricsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, int64(1), snapshot.Legitimate)
}
