package api

import (
	"context"
	"errors"
	"image"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/qr"
	"github.com/punchamoorthee/qrpay/internal/scanner"
	"github.com/punchamoorthee/qrpay/internal/session"
)

const (
	frameBuffer    = 4
	maxFrameBytes  = 4 << 20
	cameraIdle     = 60 * time.Second
	cameraWriteTTL = 10 * time.Second
	stopCommand    = "stop"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the outer handler
	},
}

// CameraHandler streams camera frames into the session. Clients send encoded images as binary messages
// and receive the session view after every classified read. The socket closes once a payment request
// is detected, or when the client sends "stop".
func (h *Handler) CameraHandler(w http.ResponseWriter, r *http.Request) {
	ep := endpoint{"GET", "/camera"}

	sess, ok := h.session(w, r, ep)
	if !ok {
		return
	}
	if sess.State() == domain.ScanIdle {
		if err := sess.StartScan(); err != nil {
			h.fail(w, ep, statusFor(err), err.Error(), nil)
			return
		}
	}
	if st := sess.State(); st != domain.ScanScanning {
		view := sess.View()
		h.fail(w, ep, http.StatusConflict, "camera needs a scanning session, state is "+string(st), &view)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("camera upgrade failed", zap.String("session_id", sess.ID()), zap.Error(err))
		return
	}
	defer conn.Close()
	httpRequestsTotal.WithLabelValues(ep.method, ep.path, "101").Inc()

	log := h.log.With(zap.String("session_id", sess.ID()))
	log.Info("camera connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan image.Image, frameBuffer)
	proposals := make(chan scanner.Proposal)

	go h.readFrames(ctx, cancel, conn, frames, log)

	sampler := &scanner.Sampler{
		Decoder:   h.svc.Engine(),
		Threshold: h.camera.Threshold,
		Stride:    h.camera.Stride,
		Log:       log,
	}
	go func() {
		defer close(proposals)
		if err := sampler.Run(ctx, frames, proposals); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("sampler stopped", zap.Error(err))
		}
	}()

	if err := writeView(conn, sess.View()); err != nil {
		return
	}
	h.consume(conn, sess, proposals, log)
	cancel()

	if sess.State() == domain.ScanScanning {
		if err := sess.Cancel(); err != nil {
			log.Warn("cancel after camera close failed", zap.Error(err))
		}
	}
	conn.SetWriteDeadline(time.Now().Add(cameraWriteTTL))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	log.Info("camera closed", zap.String("state", string(sess.State())))
}

// consume is the only goroutine that moves the session while the camera is open.
func (h *Handler) consume(conn *websocket.Conn, sess *session.Session, proposals <-chan scanner.Proposal, log *zap.Logger) {
	for p := range proposals {
		_, err := h.svc.ApplyText(sess, p.Text)
		view := sess.View()
		if werr := writeView(conn, view); werr != nil {
			log.Debug("camera write failed", zap.Error(werr))
			return
		}
		if err == nil && view.State == domain.ScanDetected {
			return
		}
	}
}

// readFrames decodes binary messages into frames. A full buffer drops the frame instead of stalling
// the socket.
func (h *Handler) readFrames(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, frames chan<- image.Image, log *zap.Logger) {
	defer close(frames)
	defer cancel()

	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(cameraIdle))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("camera read failed", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(cameraIdle))

		if kind == websocket.TextMessage {
			if string(data) == stopCommand {
				return
			}
			continue
		}

		img, err := qr.DecodeFrame(data)
		if err != nil {
			log.Debug("bad camera frame", zap.Error(err))
			continue
		}
		select {
		case frames <- img:
		case <-ctx.Done():
			return
		default:
		}
	}
}

func writeView(conn *websocket.Conn, v session.View) error {
	conn.SetWriteDeadline(time.Now().Add(cameraWriteTTL))
	return conn.WriteJSON(v)
}
