package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/export"
	"github.com/Dan9191/gmah-treasury/internal/middleware"
	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/Dan9191/gmah-treasury/internal/repository"
	"github.com/Dan9191/gmah-treasury/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc    *service.Service
	log    *logrus.Logger
	render func(io.Writer, *models.TreasuryForecast) error
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, render: export.WriteForecast}
}

// Routes registers the public and protected endpoints on r
func (h *Handler) Routes(r *mux.Router, auth mux.MiddlewareFunc) {
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	t := r.PathPrefix("/treasury").Subrouter()
	t.Use(auth)
	t.HandleFunc("/forecasts", h.CreateForecast).Methods(http.MethodPost)
	t.HandleFunc("/forecasts/latest", h.LatestForecast).Methods(http.MethodGet)
	t.HandleFunc("/forecasts/summary", h.Summary).Methods(http.MethodGet)
	t.HandleFunc("/forecasts/{id}", h.GetForecast).Methods(http.MethodGet)
	t.HandleFunc("/forecasts/{id}/export", h.ExportForecast).Methods(http.MethodGet)
	t.HandleFunc("/alerts/{id}/acknowledge", h.AcknowledgeAlert).Methods(http.MethodPost)
	t.HandleFunc("/alerts/{id}/deactivate", h.DeactivateAlert).Methods(http.MethodPost)
	t.HandleFunc("/flows", h.RecordFlow).Methods(http.MethodPost)
	t.HandleFunc("/flows/{id}/realize", h.RealizeFlow).Methods(http.MethodPost)
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login handles treasurer authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.svc.Login(req.Login, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateForecast computes and stores a new forecast
func (h *Handler) CreateForecast(w http.ResponseWriter, r *http.Request) {
	var req models.CreateForecastRequest
	if !h.decode(w, r, &req) {
		return
	}
	if who, ok := middleware.Subject(r.Context()); ok && req.Metadata == nil {
		req.Metadata = &models.Metadata{
			Kind:    models.MetadataForecastRequest,
			Request: &models.ForecastRequestMetadata{RequestedBy: who, Trigger: "api"},
		}
	}
	f, err := h.svc.CreateForecast(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// LatestForecast returns the newest forecast matching the query string
func (h *Handler) LatestForecast(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	f, err := h.svc.LatestForecast(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Summary returns forecast and alert counters
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetForecast returns one stored forecast
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	inactive, err := parseBool(r, "includeInactiveAlerts")
	if err != nil {
		h.fail(w, err)
		return
	}
	f, err := h.svc.GetForecast(r.Context(), mux.Vars(r)["id"], inactive)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ExportForecast streams a stored forecast as an XLSX workbook
func (h *Handler) ExportForecast(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.GetForecast(r.Context(), mux.Vars(r)["id"], true)
	if err != nil {
		h.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.render(&buf, f); err != nil {
		h.log.WithError(err).WithField("forecast_id", f.ID).Error("Failed to export forecast")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to export forecast"})
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.FileName(f))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.log.WithError(err).WithField("forecast_id", f.ID).Warn("Export download interrupted")
	}
}

// AcknowledgeAlert marks an alert as seen
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.AcknowledgeAlert(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeactivateAlert retires an alert
func (h *Handler) DeactivateAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.DeactivateAlert(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// RecordFlow registers a manual treasury flow
func (h *Handler) RecordFlow(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFlowRequest
	if !h.decode(w, r, &req) {
		return
	}
	f, err := h.svc.RecordFlow(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// RealizeFlow marks a flow as actual
func (h *Handler) RealizeFlow(w http.ResponseWriter, r *http.Request) {
	var req models.RealizeFlowRequest
	if !h.decode(w, r, &req) {
		return
	}
	f, err := h.svc.RealizeFlow(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func parseQuery(r *http.Request) (models.ForecastQuery, error) {
	var q models.ForecastQuery
	v := r.URL.Query()

	if s := v.Get("days"); s != "" {
		days, err := strconv.Atoi(s)
		if err != nil {
			return q, &models.ValidationError{Field: "days", Reason: "must be an integer"}
		}
		q.Days = &days
	}
	if s := v.Get("scenario"); s != "" {
		sc, err := models.ParseScenario(s)
		if err != nil {
			return q, err
		}
		q.Scenario = sc
	}
	if s := v.Get("startDate"); s != "" {
		start, err := parseStartDate(s)
		if err != nil {
			return q, err
		}
		q.StartDate = &start
	}
	inactive, err := parseBool(r, "includeInactiveAlerts")
	if err != nil {
		return q, err
	}
	q.IncludeInactiveAlerts = inactive
	return q, nil
}

func parseStartDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &models.ValidationError{Field: "startDate", Reason: "must be an ISO-8601 date"}
}

func parseBool(r *http.Request, key string) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, &models.ValidationError{Field: key, Reason: "must be true or false"}
	}
	return b, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.fail(w, verr)
			return false
		}
		h.log.WithError(err).Debug("Malformed request body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// fail maps service errors onto HTTP statuses
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, repository.ErrFlowRealized):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	default:
		h.log.WithError(err).Error("Request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
