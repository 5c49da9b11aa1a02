package routes

import (
	"net/http"

	"github.com/caresync-health/platform/pkg/common/errs"
	"github.com/caresync-health/platform/pkg/common/httpx"
	"github.com/caresync-health/platform/pkg/device"
	"github.com/caresync-health/platform/pkg/gateway/auth"
	"github.com/caresync-health/platform/pkg/identity"
	"github.com/caresync-health/platform/pkg/ingestion"
	"github.com/caresync-health/platform/pkg/normalizer"
	"github.com/gorilla/mux"
)

const RoleAdmin = "admin"

type DeviceHandler struct {
	Registry  *device.Registry
	Resolver  *identity.Resolver
	Ingestion *ingestion.Service
}

// RegisterDeviceRoutes expects router to already require a session.
func RegisterDeviceRoutes(router *mux.Router, h *DeviceHandler) {
	if h == nil || h.Registry == nil || h.Resolver == nil || h.Ingestion == nil {
		panic("device routes require registry, resolver and ingestion service")
	}

	router.HandleFunc("/devices/register", h.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/devices/{id}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/devices/{id}/sync", h.handleSync).Methods(http.MethodPost)
	router.HandleFunc("/devices/{id}/metrics", h.handleMetrics).Methods(http.MethodGet)
	router.HandleFunc("/devices/{id}/disconnect", h.handleDisconnect).Methods(http.MethodPost)
	router.HandleFunc("/devices/{id}/reconnect", h.handleReconnect).Methods(http.MethodPost)
	router.HandleFunc("/devices/{id}/transfer", h.handleTransfer).Methods(http.MethodPost)
}

func (h *DeviceHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}

	req := device.RegisterRequest{
		SessionUserID: auth.UserID(r.Context()),
		Kinds:         []string{normalizer.FirstString(body, "device_type", "type", "provider")},
		ExternalIDs:   []string{normalizer.FirstString(body, "device_id", "serial", "id")},
	}
	if uid, ok := normalizer.FirstInt(body, "user_id"); ok && uid > 0 {
		req.ExplicitUserID = uint(uid)
	}

	d, outcome, err := h.Registry.Register(r.Context(), req)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	status := http.StatusOK
	if outcome == device.OutcomeCreated {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, d)
}

func (h *DeviceHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.Resolver.Device(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DeviceHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	payload, err := httpx.DecodeBody(r)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	res, err := h.Ingestion.SyncDevice(r.Context(), mux.Vars(r)["id"], payload)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *DeviceHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Ingestion.DeviceMetrics(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(rows))
}

func (h *DeviceHandler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	d, ok := h.ownedDevice(w, r)
	if !ok {
		return
	}
	d, err := h.Registry.Disconnect(r.Context(), d)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DeviceHandler) handleReconnect(w http.ResponseWriter, r *http.Request) {
	d, ok := h.ownedDevice(w, r)
	if !ok {
		return
	}
	d, err := h.Registry.Reconnect(r.Context(), d)
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

// handleTransfer is the explicit change-of-owner action and is limited to
// administrators.
func (h *DeviceHandler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if claims, _ := auth.ClaimsFromContext(r.Context()); claims == nil || claims.Role != RoleAdmin {
		httpx.Error(w, http.StatusForbidden, "device transfer requires an administrator")
		return
	}
	body, ok := decodeObject(w, r)
	if !ok {
		return
	}
	newOwner, ok := normalizer.FirstInt(body, "user_id")
	if !ok || newOwner <= 0 {
		httpx.Fail(w, device.ErrOwnerUnresolved)
		return
	}
	d, err := h.Resolver.Device(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	d, err = h.Registry.Transfer(r.Context(), d, uint(newOwner))
	if err != nil {
		httpx.Fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

// ownedDevice resolves the path device and allows the call for its owner or
// an administrator.
func (h *DeviceHandler) ownedDevice(w http.ResponseWriter, r *http.Request) (*device.Device, bool) {
	d, err := h.Resolver.Device(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Fail(w, err)
		return nil, false
	}
	claims, _ := auth.ClaimsFromContext(r.Context())
	if claims == nil || (claims.UserID != d.UserID && claims.Role != RoleAdmin) {
		httpx.Error(w, http.StatusForbidden, "device belongs to another user")
		return nil, false
	}
	return d, true
}

func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	payload, err := httpx.DecodeBody(r)
	if err != nil {
		httpx.Fail(w, err)
		return nil, false
	}
	body, ok := payload.(map[string]interface{})
	if !ok {
		httpx.Fail(w, errs.New(errs.KindInvalidPayload, "request body must be a JSON object"))
		return nil, false
	}
	return body, true
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
