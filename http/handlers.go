package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"fraudcheck/fraud"
	"fraudcheck/ml"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const modelLoadWarning = "Model could not be loaded. Predictions are disabled."

// pageData 页面模板数据
type pageData struct {
	ModelLoaded bool
	LoadWarning string
	Types       []typeOption
	Form        formValues
	InputError  string
	Result      *resultView
}

type typeOption struct {
	Label    string
	Selected bool
}

// resultView 检测结果展示
type resultView struct {
	Fraud    bool
	Failed   bool
	Headline string
	Detail   string
	Summary  string
}

func (h *handlers) registerPageHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handlePredictForm)
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, h.newPage(defaultFormValues()))
}

// handlePredictForm 表单提交：解析 -> 预测 -> 渲染
func (h *handlers) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Detector.Available() {
		h.renderPage(w, http.StatusServiceUnavailable, h.newPage(defaultFormValues()))
		return
	}

	if err := r.ParseForm(); err != nil {
		page := h.newPage(defaultFormValues())
		page.InputError = inputErrorMessage(err)
		h.renderPage(w, statusForInputError(err), page)
		return
	}

	sub, form, err := parseSubmission(r.PostForm)
	page := h.newPage(form)
	if err != nil {
		page.InputError = inputErrorMessage(err)
		h.renderPage(w, http.StatusBadRequest, page)
		return
	}

	outcome, err := h.deps.Detector.Check(r.Context(), sub)
	switch {
	case errors.Is(err, fraud.ErrModelUnavailable):
		page.ModelLoaded = false
		h.renderPage(w, http.StatusServiceUnavailable, page)
		return
	case err != nil:
		page.InputError = inputErrorMessage(err)
		h.renderPage(w, http.StatusBadRequest, page)
		return
	}

	page.Result = h.resultView(outcome)
	h.renderPage(w, http.StatusOK, page)
}

func (h *handlers) newPage(form formValues) pageData {
	page := pageData{
		ModelLoaded: h.deps.Detector.Available(),
		LoadWarning: modelLoadWarning,
		Form:        form,
	}
	for _, t := range ml.TransactionTypes() {
		page.Types = append(page.Types, typeOption{Label: t.String(), Selected: t.String() == form.Type})
	}
	return page
}

func (h *handlers) resultView(outcome fraud.Outcome) *resultView {
	view := &resultView{
		Headline: outcome.Message(),
		Summary: fmt.Sprintf("%s · amount %s · originator balance %s → %s",
			outcome.Type,
			h.printer.Format(outcome.Vector.Amount),
			h.printer.Format(outcome.Vector.OldBalanceOrig),
			h.printer.Format(outcome.Vector.NewBalanceOrig),
		),
	}
	if !outcome.OK() {
		view.Failed = true
		return view
	}
	view.Fraud = outcome.Verdict == fraud.VerdictFraud
	view.Detail = outcome.Verdict.Detail()
	return view
}

func (h *handlers) renderPage(w http.ResponseWriter, status int, page pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		h.deps.Logger.Error("render page failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func inputErrorMessage(err error) string {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return "The submission is too large."
	}
	if !errors.Is(err, errInvalidInput) {
		err = fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	return "Invalid input: " + strings.TrimPrefix(err.Error(), errInvalidInput.Error()+": ")
}

func statusForInputError(err error) int {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
