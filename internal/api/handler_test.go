package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/models"
	"github.com/punchamoorthee/qrpay/internal/qr"
	"github.com/punchamoorthee/qrpay/internal/service"
	"github.com/punchamoorthee/qrpay/internal/session"
	"github.com/punchamoorthee/qrpay/internal/store"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := service.NewPaymentService(qr.NewEngine(qr.DefaultModulePixels, qr.DefaultMaxFrameWidth),
		&store.MemoryJournal{}, nil, service.Options{Currency: "PKR", OpeningBalance: decimal.NewFromInt(5000)})
	return NewRouter(NewHandler(svc, nil, CameraOptions{Threshold: 2, Stride: 1}))
}

// client keeps the session cookie between requests.
type client struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (c *client) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) json(method, path string, v any) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(c.t, err)
		body = bytes.NewReader(b)
	}
	return c.do(method, path, body, "application/json")
}

func (c *client) login(name, cnic string, balance int64) {
	c.t.Helper()
	b := decimal.NewFromInt(balance)
	rec := c.json(http.MethodPost, "/api/v1/session", models.LoginRequest{Name: name, CNIC: cnic, Balance: &b})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(c.t, c.cookie)
}

func (c *client) upload(png []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "qr.png")
	require.NoError(c.t, err)
	_, err = fw.Write(png)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())
	return c.do(http.MethodPost, "/api/v1/scan/upload", &buf, mw.FormDataContentType())
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	c := &client{t: t, h: newRouter(t)}
	rec := c.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLoginValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad cnic", `{"name":"Ali","cnic":"12345-123456-1"}`, http.StatusUnprocessableEntity},
		{"blank name", `{"name":"  ","cnic":"12345-1234567-1"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"name":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{t: t, h: newRouter(t)}
			rec := c.do(http.MethodPost, "/api/v1/session", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, tt.code, rec.Code)
			assert.Nil(t, c.cookie)
		})
	}
}

func TestLoginDefaultBalance(t *testing.T) {
	c := &client{t: t, h: newRouter(t)}
	rec := c.json(http.MethodPost, "/api/v1/session", map[string]string{"name": "Sara", "cnic": "54321-7654321-9"})
	require.Equal(t, http.StatusCreated, rec.Code)

	view := decodeBody[session.View](t, rec)
	require.NotNil(t, view.Account)
	assert.True(t, view.Account.Balance.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, domain.ScanIdle, view.State)
}

func TestRequiresSession(t *testing.T) {
	c := &client{t: t, h: newRouter(t)}
	for _, path := range []string{"/api/v1/session", "/api/v1/qr/me", "/api/v1/transactions"} {
		rec := c.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	c.cookie = &http.Cookie{Name: SessionCookie, Value: "unknown"}
	rec := c.do(http.MethodPost, "/api/v1/scan/start", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadAndConfirm(t *testing.T) {
	router := newRouter(t)
	merchant := &client{t: t, h: router}
	merchant.login("Ali", "12345-1234567-1", 0)

	rec := merchant.json(http.MethodPost, "/api/v1/qr/payment", models.PaymentQRRequest{Amount: decimal.NewFromInt(40)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	png := rec.Body.Bytes()

	payer := &client{t: t, h: router}
	payer.login("Sara", "54321-7654321-9", 100)

	rec = payer.upload(png)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	scan := decodeBody[models.ScanResponse](t, rec)
	assert.Equal(t, domain.KindPayment, scan.Kind)
	assert.Equal(t, domain.ScanDetected, scan.Session.State)
	require.NotNil(t, scan.Session.Pending)
	assert.Equal(t, "Ali", scan.Session.Pending.Sender)

	rec = payer.do(http.MethodPost, "/api/v1/scan/confirm", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirm := decodeBody[models.ConfirmResponse](t, rec)
	assert.Equal(t, "Payment of PKR 40.00 to Ali successful.", confirm.Message)
	assert.True(t, confirm.Transaction.BalanceAfter.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, domain.ScanConfirmed, confirm.Session.State)

	rec = payer.do(http.MethodPost, "/api/v1/scan/confirm", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = payer.do(http.MethodGet, "/api/v1/transactions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decodeBody[models.TransactionsResponse](t, rec)
	require.Len(t, txs.Transactions, 1)
	assert.Equal(t, 1, txs.Transactions[0].Number)
	assert.Equal(t, "PKR 40.00", txs.Transactions[0].Amount)
	assert.Equal(t, "PKR 60.00", txs.Transactions[0].BalanceAfter)

	rec = payer.do(http.MethodPost, "/api/v1/scan/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ScanIdle, decodeBody[session.View](t, rec).State)
}

func TestPayloadRejections(t *testing.T) {
	c := &client{t: t, h: newRouter(t)}
	c.login("Sara", "54321-7654321-9", 10)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/scan/start", nil, "").Code)

	tests := []struct {
		name string
		text string
	}{
		{"not json", "hello"},
		{"user info", `{"type":"user_info","name":"Ali","cnic":"12345-1234567-1","balance":5}`},
		{"unknown tag", `{"type":"refund","amount":5}`},
		{"zero amount", `{"type":"payment","sender":"Ali","sender_cnic":"12345-1234567-1","amount":0}`},
	}
	for _, tt := range tests {
		rec := c.json(http.MethodPost, "/api/v1/scan/payload", models.PayloadRequest{Text: tt.text})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, tt.name)
		resp := decodeBody[models.ErrorResponse](t, rec)
		require.NotNil(t, resp.Session, tt.name)
		assert.Equal(t, domain.ScanScanning, resp.Session.State, tt.name)
		assert.NotEmpty(t, resp.Session.Notice, tt.name)
	}
}

func TestInsufficientFundsKeepsDetected(t *testing.T) {
	c := &client{t: t, h: newRouter(t)}
	c.login("Sara", "54321-7654321-9", 10)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/scan/start", nil, "").Code)

	rec := c.json(http.MethodPost, "/api/v1/scan/payload", models.PayloadRequest{
		Text: `{"type":"payment","sender":"Ali","sender_cnic":"12345-1234567-1","amount":40}`,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/scan/confirm", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeBody[models.ErrorResponse](t, rec)
	require.NotNil(t, resp.Session)
	assert.Equal(t, domain.ScanDetected, resp.Session.State)
	assert.True(t, resp.Session.Account.Balance.Equal(decimal.NewFromInt(10)))

	rec = c.do(http.MethodPost, "/api/v1/scan/cancel", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ScanIdle, decodeBody[session.View](t, rec).State)
}

func TestLogout(t *testing.T) {
	c := &client{t: t, h: newRouter(t)}
	c.login("Sara", "54321-7654321-9", 10)
	old := c.cookie

	rec := c.do(http.MethodDelete, "/api/v1/session", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c.cookie = old
	rec = c.do(http.MethodGet, "/api/v1/session", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
