// Package scanner samples camera frames for QR payloads and proposes stable reads to a consumer.
package scanner

import (
	"context"
	"errors"
	"image"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/qrpay/internal/domain"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrpay_scanner_frames_total",
		Help: "Camera frames received by the sampler, labeled by outcome",
	}, []string{"outcome"})

	proposalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrpay_scanner_proposals_total",
		Help: "Debounced reads proposed to the session consumer",
	})
)

// Decoder extracts transport text from an image. It returns domain.ErrNoPayloadDetected when the
// image holds no readable symbol.
type Decoder interface {
	Scan(img image.Image) (string, error)
}

// Proposal is a debounced read waiting to be classified by the session consumer.
type Proposal struct {
	Text  string
	Reads int
}

// Sampler reads frames, decodes every Stride-th one and proposes reads that pass the debouncer.
// It never touches session state.
type Sampler struct {
	Decoder   Decoder
	Threshold int
	Stride    int
	Log       *zap.Logger
}

// Run consumes frames until ctx is done or frames is closed. Each accepted read is sent on out.
func (s *Sampler) Run(ctx context.Context, frames <-chan image.Image, out chan<- Proposal) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	stride := s.Stride
	if stride < 1 {
		stride = DefaultStride
	}
	deb := Debouncer{Threshold: s.Threshold}
	if deb.Threshold < 1 {
		deb.Threshold = DefaultThreshold
	}

	n := 0
	for {
		var frame image.Image
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			frame = f
		}

		n++
		if n%stride != 0 {
			framesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		text, err := s.Decoder.Scan(frame)
		switch {
		case err == nil:
			framesTotal.WithLabelValues("decoded").Inc()
		case errors.Is(err, domain.ErrNoPayloadDetected):
			framesTotal.WithLabelValues("empty").Inc()
		default:
			framesTotal.WithLabelValues("error").Inc()
			log.Debug("frame decode failed", zap.Error(err))
		}

		accepted, ok := deb.Observe(text, err == nil)
		if !ok {
			continue
		}

		proposalsTotal.Inc()
		select {
		case out <- Proposal{Text: accepted, Reads: deb.Threshold}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
