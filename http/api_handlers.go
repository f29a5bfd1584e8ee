// Package http 提供API处理器
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"fraudcheck/fraud"
	"fraudcheck/ml"
)

// predictRequest 单笔交易检测请求
type predictRequest struct {
	Type       *ml.TransactionType `json:"type"`
	Amount     float64             `json:"amount"`
	OldBalance float64             `json:"old_balance"`
	NewBalance float64             `json:"new_balance"`
}

// predictResponse 单笔交易检测结果
type predictResponse struct {
	ID        string             `json:"id"`
	RequestID string             `json:"request_id,omitempty"`
	State     fraud.State        `json:"state"`
	Type      ml.TransactionType `json:"type"`
	Features  []float64          `json:"features"`
	Label     *int               `json:"label,omitempty"`
	Verdict   string             `json:"verdict,omitempty"`
	Message   string             `json:"message"`
	Error     string             `json:"error,omitempty"`
	Cached    bool               `json:"cached"`
	CheckedAt time.Time          `json:"checked_at"`
}

type transactionTypeResponse struct {
	Label string `json:"label"`
	Code  int    `json:"code"`
}

// registerAPIHandlers 注册所有API处理器
func (h *handlers) registerAPIHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/transaction-types", h.handleTransactionTypes)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET /api/verdicts/recent", h.handleRecentVerdicts)
	if h.deps.Hub != nil {
		mux.HandleFunc("GET /ws/verdicts", h.deps.Hub.HandleWebSocket)
	}
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status":       "ok",
		"model_loaded": h.deps.Detector.Available(),
	}
	if err := h.deps.Detector.LoadError(); err != nil {
		payload["model_error"] = err.Error()
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *handlers) handleTransactionTypes(w http.ResponseWriter, r *http.Request) {
	types := make([]transactionTypeResponse, 0, len(ml.TransactionTypes()))
	for _, t := range ml.TransactionTypes() {
		code, _ := t.Code()
		types = append(types, transactionTypeResponse{Label: t.String(), Code: code})
	}
	respondJSON(w, http.StatusOK, types)
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Detector.Available() {
		respondError(w, http.StatusServiceUnavailable, fraud.ErrModelUnavailable.Error())
		return
	}

	var req predictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondError(w, statusForInputError(err), fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Type == nil {
		respondError(w, http.StatusBadRequest, "type is required")
		return
	}

	outcome, err := h.deps.Detector.Check(r.Context(), fraud.Submission{
		Type:       *req.Type,
		Amount:     req.Amount,
		OldBalance: req.OldBalance,
		NewBalance: req.NewBalance,
	})
	switch {
	case errors.Is(err, fraud.ErrModelUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := predictResponse{
		ID:        outcome.ID,
		RequestID: GetRequestID(r.Context()),
		State:     outcome.State,
		Type:      outcome.Type,
		Features:  outcome.Vector.Values(),
		Message:   outcome.Message(),
		Cached:    outcome.Cached,
		CheckedAt: outcome.CheckedAt,
	}
	if !outcome.OK() {
		resp.Error = outcome.Failure
		respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	label := outcome.Verdict.Label()
	resp.Label = &label
	resp.Verdict = outcome.Verdict.String()
	respondJSON(w, http.StatusOK, resp)
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.deps.Metrics.Snapshot())
}

func (h *handlers) handleRecentVerdicts(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "audit store is not enabled")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	records, err := h.deps.Store.Recent(r.Context(), limit)
	if err != nil {
		h.deps.Logger.Error("load recent verdicts failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not load verdicts")
		return
	}
	totals, err := h.deps.Store.Count(r.Context())
	if err != nil {
		h.deps.Logger.Error("count verdicts failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not load verdicts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"verdicts": records,
		"count":    len(records),
		"totals":   totals,
	})
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
