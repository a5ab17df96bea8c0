package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the health, metrics and /api/v1 routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/session", h.LoginHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/session", h.GetSessionHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/session", h.LogoutHandler).Methods(http.MethodDelete)
	apiV1.HandleFunc("/qr/me", h.MyQRHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/qr/payment", h.PaymentQRHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/scan/start", h.StartScanHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/scan/upload", h.UploadHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/scan/payload", h.PayloadHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/scan/confirm", h.ConfirmHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/scan/cancel", h.CancelScanHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/scan/reset", h.ResetScanHandler).Methods(http.MethodPost)
	apiV1.HandleFunc("/transactions", h.TransactionsHandler).Methods(http.MethodGet)
	apiV1.HandleFunc("/camera", h.CameraHandler).Methods(http.MethodGet)
	return r
}
