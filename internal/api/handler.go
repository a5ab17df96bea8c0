package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/history"
	"github.com/punchamoorthee/qrpay/internal/models"
	"github.com/punchamoorthee/qrpay/internal/service"
	"github.com/punchamoorthee/qrpay/internal/session"
)

// SessionCookie carries the session ID between requests.
const SessionCookie = "qrpay_session"

const maxUploadBytes = 8 << 20

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrpay_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qrpay_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// CameraOptions tunes the frame sampler behind the camera socket.
type CameraOptions struct {
	Threshold int
	Stride    int
}

type Handler struct {
	svc    *service.PaymentService
	log    *zap.Logger
	camera CameraOptions
}

func NewHandler(svc *service.PaymentService, log *zap.Logger, camera CameraOptions) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log, camera: camera}
}

// endpoint labels the metrics of one route.
type endpoint struct {
	method string
	path   string
}

func (e endpoint) timer() *prometheus.Timer {
	return prometheus.NewTimer(httpRequestDuration.WithLabelValues(e.method, e.path))
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"POST", "/session"}
	defer ep.timer().ObserveDuration()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, ep, http.StatusBadRequest, "Malformed JSON body", nil)
		return
	}

	sess, err := h.current(r)
	fresh := err != nil
	if fresh {
		sess = h.svc.NewSession()
	}
	if err := h.svc.Login(sess, req.Name, req.CNIC, req.Balance); err != nil {
		if fresh {
			h.svc.EndSession(sess.ID())
		}
		h.fail(w, ep, statusFor(err), err.Error(), nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.ok(w, ep, http.StatusCreated, sess.View())
}

func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"GET", "/session"}
	defer ep.timer().ObserveDuration()

	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}
	h.ok(w, ep, http.StatusOK, sess.View())
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"DELETE", "/session"}
	defer ep.timer().ObserveDuration()

	if c, err := r.Cookie(SessionCookie); err == nil {
		h.svc.EndSession(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	h.ok(w, ep, http.StatusNoContent, nil)
}

func (h *Handler) MyQRHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"GET", "/qr/me"}
	defer ep.timer().ObserveDuration()

	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}
	png, err := h.svc.MyQR(sess)
	if err != nil {
		h.fail(w, ep, statusFor(err), err.Error(), nil)
		return
	}
	h.png(w, ep, png)
}

func (h *Handler) PaymentQRHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"POST", "/qr/payment"}
	defer ep.timer().ObserveDuration()

	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}
	var req models.PaymentQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, ep, http.StatusBadRequest, "Malformed JSON body", nil)
		return
	}
	png, err := h.svc.PaymentQR(sess, req.Amount)
	if err != nil {
		h.fail(w, ep, statusFor(err), err.Error(), nil)
		return
	}
	h.png(w, ep, png)
}

func (h *Handler) StartScanHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"POST", "/scan/start"}
	defer ep.timer().ObserveDuration()
	h.transition(w, r, ep, (*session.Session).StartScan)
}

func (h *Handler) CancelScanHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"POST", "/scan/cancel"}
	defer ep.timer().ObserveDuration()
	h.transition(w, r, ep, (*session.Session).Cancel)
}

func (h *Handler) ResetScanHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"POST", "/scan/reset"}
	defer ep.timer().ObserveDuration()
	h.transition(w, r, ep, (*session.Session).ResetAfterConfirmation)
}

func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"POST", "/scan/upload"}
	defer ep.timer().ObserveDuration()

	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("image")
	if err != nil {
		h.fail(w, ep, http.StatusBadRequest, "Missing image upload", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, ep, http.StatusBadRequest, "Stream read error", nil)
		return
	}

	p, err := h.svc.ScanImage(sess, data)
	h.scanResult(w, ep, sess, p, err)
}

func (h *Handler) PayloadHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"POST", "/scan/payload"}
	defer ep.timer().ObserveDuration()

	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}
	var req models.PayloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, ep, http.StatusBadRequest, "Malformed JSON body", nil)
		return
	}

	p, err := h.svc.ApplyText(sess, req.Text)
	h.scanResult(w, ep, sess, p, err)
}

func (h *Handler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"POST", "/scan/confirm"}
	defer ep.timer().ObserveDuration()

	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}
	tx, err := h.svc.Confirm(r.Context(), sess)
	if err != nil {
		view := sess.View()
		h.fail(w, ep, statusFor(err), err.Error(), &view)
		return
	}

	msg := fmt.Sprintf("Payment of %s to %s successful.",
		history.FormatMoney(h.svc.Currency(), tx.Amount), tx.CounterpartyName)
	h.ok(w, ep, http.StatusOK, models.ConfirmResponse{Transaction: tx, Message: msg, Session: sess.View()})
}

func (h *Handler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"GET", "/transactions"}
	defer ep.timer().ObserveDuration()

	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}
	view := sess.View()
	if !view.LoggedIn {
		h.fail(w, ep, http.StatusUnauthorized, domain.ErrNotLoggedIn.Error(), nil)
		return
	}
	h.ok(w, ep, http.StatusOK, models.TransactionsResponse{
		Currency:     h.svc.Currency(),
		Transactions: history.Entries(view.Transactions, h.svc.Currency()),
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, ep endpoint, step func(*session.Session) error) {
	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}
	if err := step(sess); err != nil {
		view := sess.View()
		h.fail(w, ep, statusFor(err), err.Error(), &view)
		return
	}
	h.ok(w, ep, http.StatusOK, sess.View())
}

func (h *Handler) scanResult(w http.ResponseWriter, ep endpoint, sess *session.Session, p domain.Payload, err error) {
	if err != nil {
		view := sess.View()
		h.fail(w, ep, statusFor(err), err.Error(), &view)
		return
	}
	h.ok(w, ep, http.StatusOK, models.ScanResponse{Kind: p.Kind(), Session: sess.View()})
}

func (h *Handler) current(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, service.ErrSessionNotFound
	}
	return h.svc.Session(c.Value)
}

// session resolves the request's session or writes a 401.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, ep endpoint) (*session.Session, bool) {
	sess, err := h.current(r)
	if err != nil {
		h.fail(w, ep, http.StatusUnauthorized, err.Error(), nil)
		return nil, false
	}
	return sess, true
}

// statusFor maps core errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotLoggedIn), errors.Is(err, service.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidCNIC),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrMalformedTransport),
		errors.Is(err, domain.ErrUnrecognizedTag),
		errors.Is(err, domain.ErrNotPaymentRequest),
		errors.Is(err, domain.ErrNoPayloadDetected),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) ok(w http.ResponseWriter, ep endpoint, code int, payload interface{}) {
	httpRequestsTotal.WithLabelValues(ep.method, ep.path, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, payload)
}

func (h *Handler) fail(w http.ResponseWriter, ep endpoint, code int, msg string, view *session.View) {
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("endpoint", ep.path), zap.String("error", msg))
		msg = "Internal Server Error"
	}
	httpRequestsTotal.WithLabelValues(ep.method, ep.path, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, models.ErrorResponse{Error: msg, Session: view})
}

func (h *Handler) png(w http.ResponseWriter, ep endpoint, data []byte) {
	httpRequestsTotal.WithLabelValues(ep.method, ep.path, "200").Inc()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
