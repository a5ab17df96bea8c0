package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/models"
	"github.com/punchamoorthee/qrpay/internal/session"
)

func dialCamera(t *testing.T, srv *httptest.Server, c *client) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/camera"
	header := http.Header{}
	if c.cookie != nil {
		header.Set("Cookie", (&http.Cookie{Name: SessionCookie, Value: c.cookie.Value}).String())
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readView(t *testing.T, conn *websocket.Conn) session.View {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var v session.View
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

func TestCameraDetectsPayment(t *testing.T) {
	router := newRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	merchant := &client{t: t, h: router}
	merchant.login("Ali", "12345-1234567-1", 0)
	rec := merchant.json(http.MethodPost, "/api/v1/qr/payment", models.PaymentQRRequest{Amount: decimal.NewFromInt(40)})
	require.Equal(t, http.StatusOK, rec.Code)
	png := rec.Body.Bytes()

	payer := &client{t: t, h: router}
	payer.login("Sara", "54321-7654321-9", 100)

	conn, resp, err := dialCamera(t, srv, payer)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	assert.Equal(t, domain.ScanScanning, readView(t, conn).State)

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, png))
	}

	view := readView(t, conn)
	assert.Equal(t, domain.ScanDetected, view.State)
	require.NotNil(t, view.Pending)
	assert.True(t, view.Pending.Amount.Equal(decimal.NewFromInt(40)))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	rec = payer.do(http.MethodGet, "/api/v1/session", nil, "")
	assert.Equal(t, domain.ScanDetected, decodeBody[session.View](t, rec).State)
}

func TestCameraStopCancelsScan(t *testing.T) {
	router := newRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	payer := &client{t: t, h: router}
	payer.login("Sara", "54321-7654321-9", 100)

	conn, _, err := dialCamera(t, srv, payer)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, domain.ScanScanning, readView(t, conn).State)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("stop")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	rec := payer.do(http.MethodGet, "/api/v1/session", nil, "")
	assert.Equal(t, domain.ScanIdle, decodeBody[session.View](t, rec).State)
}

func TestCameraRequiresLogin(t *testing.T) {
	srv := httptest.NewServer(newRouter(t))
	defer srv.Close()

	_, resp, err := dialCamera(t, srv, &client{t: t})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
