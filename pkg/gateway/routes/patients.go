package routes

import (
	"net/http"
	"strconv"

	"github.com/caresync-health/platform/pkg/common/httpx"
	"github.com/caresync-health/platform/pkg/identity"
	"github.com/caresync-health/platform/pkg/ingestion"
	"github.com/caresync-health/platform/pkg/normalizer"
	"github.com/gorilla/mux"
)

type PatientHandler struct {
	Ingestion *ingestion.Service
}

func RegisterPatientRoutes(router *mux.Router, h *PatientHandler) {
	if h == nil || h.Ingestion == nil {
		panic("patient routes require the ingestion service")
	}

	router.HandleFunc("/patients/{id}/symptoms", h.handleAddSymptoms).Methods(http.MethodPost)
	router.HandleFunc("/patients/{id}/symptoms", h.handleListSymptoms).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id}/emotions", h.handleAddEmotions).Methods(http.MethodPost)
	router.HandleFunc("/patients/{id}/emotions", h.handleListEmotions).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id}/metrics", h.handleAddMetrics).Methods(http.MethodPost)
	router.HandleFunc("/patients/{id}/metrics", h.handleListMetrics).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id}/metrics/latest", h.handleLatestMetric).Methods(http.MethodGet)
}

func (h *PatientHandler) handleAddSymptoms(w http.ResponseWriter, r *http.Request) {
	id, payload, ok := patientPayload(w, r)
	if !ok {
		return
	}
	rows, shape, err := h.Ingestion.AddSymptoms(r.Context(), id, payload)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	writeCreated(w, shape, rows)
}

func (h *PatientHandler) handleAddEmotions(w http.ResponseWriter, r *http.Request) {
	id, payload, ok := patientPayload(w, r)
	if !ok {
		return
	}
	rows, shape, err := h.Ingestion.AddEmotions(r.Context(), id, payload)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	writeCreated(w, shape, rows)
}

func (h *PatientHandler) handleAddMetrics(w http.ResponseWriter, r *http.Request) {
	id, payload, ok := patientPayload(w, r)
	if !ok {
		return
	}
	rows, shape, err := h.Ingestion.AddMetrics(r.Context(), id, payload)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	writeCreated(w, shape, rows)
}

func (h *PatientHandler) handleListSymptoms(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}
	rows, err := h.Ingestion.ListSymptoms(r.Context(), id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(rows))
}

func (h *PatientHandler) handleListEmotions(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}
	rows, err := h.Ingestion.ListEmotions(r.Context(), id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(rows))
}

func (h *PatientHandler) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}
	rows, err := h.Ingestion.ListMetrics(r.Context(), id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(rows))
}

// handleLatestMetric answers null when the patient has no metrics yet.
func (h *PatientHandler) handleLatestMetric(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}
	latest, err := h.Ingestion.LatestMetric(r.Context(), id)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, latest)
}

// writeCreated answers a single-object submission with the one created row
// and every other shape with the array of rows.
func writeCreated[T any](w http.ResponseWriter, shape normalizer.Shape, rows []T) {
	if shape == normalizer.ShapeSingle && len(rows) == 1 {
		httpx.JSON(w, http.StatusCreated, rows[0])
		return
	}
	httpx.JSON(w, http.StatusCreated, rows)
}

func patientID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		httpx.Fail(w, identity.ErrSubjectNotFound)
		return 0, false
	}
	return uint(id), true
}

func patientPayload(w http.ResponseWriter, r *http.Request) (uint, interface{}, bool) {
	id, ok := patientID(w, r)
	if !ok {
		return 0, nil, false
	}
	payload, err := httpx.DecodeBody(r)
	if err != nil {
		httpx.Fail(w, err)
		return 0, nil, false
	}
	return id, payload, true
}
