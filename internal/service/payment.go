package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/payload"
	"github.com/punchamoorthee/qrpay/internal/qr"
	"github.com/punchamoorthee/qrpay/internal/session"
	"github.com/punchamoorthee/qrpay/internal/store"
)

var ErrSessionNotFound = errors.New("session not found")

var paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qrpay_payments_total",
	Help: "Payment confirmations, labeled by outcome",
}, []string{"outcome"})

// Options holds defaults shared by every session. Now overrides the clock used for idle tracking.
type Options struct {
	Currency       string
	OpeningBalance decimal.Decimal
	Now            func() time.Time
}

type registered struct {
	sess *session.Session
	seen time.Time
}

// PaymentService drives sessions through the scan-and-pay flow on behalf of a UI adapter.
type PaymentService struct {
	mu       sync.RWMutex
	sessions map[string]*registered

	engine  *qr.Engine
	journal store.Journal
	log     *zap.Logger
	opts    Options
}

func NewPaymentService(engine *qr.Engine, journal store.Journal, log *zap.Logger, opts Options) *PaymentService {
	if journal == nil {
		journal = store.NopJournal{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PaymentService{
		sessions: make(map[string]*registered),
		engine:   engine,
		journal:  journal,
		log:      log,
		opts:     opts,
	}
}

func (s *PaymentService) Engine() *qr.Engine { return s.engine }
func (s *PaymentService) Currency() string   { return s.opts.Currency }

// DefaultOpeningBalance is used when a login does not specify one.
func (s *PaymentService) DefaultOpeningBalance() decimal.Decimal { return s.opts.OpeningBalance }

// NewSession registers a logged-out session under a fresh ID.
func (s *PaymentService) NewSession() *session.Session {
	sess := session.New(uuid.NewString())
	s.mu.Lock()
	s.sessions[sess.ID()] = &registered{sess: sess, seen: s.opts.Now()}
	s.mu.Unlock()
	return sess
}

// Session looks up a registered session and marks it as recently used.
func (s *PaymentService) Session(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	r.seen = s.opts.Now()
	return r.sess, nil
}

// EndSession logs the session out and forgets it.
func (s *PaymentService) EndSession(id string) {
	s.mu.Lock()
	r, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		r.sess.Reset()
		s.log.Info("session ended", zap.String("session_id", id))
	}
}

// Len returns the number of registered sessions.
func (s *PaymentService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle ends every session not looked up within maxIdle and returns how many were removed.
func (s *PaymentService) ExpireIdle(maxIdle time.Duration) int {
	cutoff := s.opts.Now().Add(-maxIdle)

	s.mu.Lock()
	var stale []*session.Session
	for id, r := range s.sessions {
		if r.seen.Before(cutoff) {
			stale = append(stale, r.sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Reset()
	}
	if len(stale) > 0 {
		s.log.Info("idle sessions expired", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunExpiry calls ExpireIdle every interval until ctx is done.
func (s *PaymentService) RunExpiry(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExpireIdle(maxIdle)
		}
	}
}

// Login initializes sess. A nil opening balance uses the configured default.
func (s *PaymentService) Login(sess *session.Session, name, cnic string, opening *decimal.Decimal) error {
	balance := s.opts.OpeningBalance
	if opening != nil {
		balance = *opening
	}
	if err := sess.Init(name, cnic, balance); err != nil {
		return err
	}
	s.log.Info("logged in", zap.String("session_id", sess.ID()), zap.String("cnic", cnic))
	return nil
}

// UserInfoText is the transport text of the logged-in user's info code.
func (s *PaymentService) UserInfoText(sess *session.Session) (string, error) {
	acct, err := sess.Account()
	if err != nil {
		return "", err
	}
	return payload.Encode(domain.UserInfo{Name: acct.Name, CNIC: acct.CNIC, Balance: acct.Balance})
}

// MyQR renders the user info code as PNG.
func (s *PaymentService) MyQR(sess *session.Session) ([]byte, error) {
	text, err := s.UserInfoText(sess)
	if err != nil {
		return nil, err
	}
	return s.engine.Render(text)
}

// PaymentText is the transport text of a request asking others to pay the logged-in user.
func (s *PaymentService) PaymentText(sess *session.Session, amount decimal.Decimal) (string, error) {
	acct, err := sess.Account()
	if err != nil {
		return "", err
	}
	return payload.Encode(domain.PaymentRequest{Sender: acct.Name, SenderCNIC: acct.CNIC, Amount: amount})
}

// PaymentQR renders a payment request as PNG.
func (s *PaymentService) PaymentQR(sess *session.Session, amount decimal.Decimal) ([]byte, error) {
	text, err := s.PaymentText(sess, amount)
	if err != nil {
		return nil, err
	}
	return s.engine.Render(text)
}

// ScanImage reads an uploaded image and applies the result. An idle session starts scanning first.
func (s *PaymentService) ScanImage(sess *session.Session, data []byte) (domain.Payload, error) {
	if sess.State() == domain.ScanIdle {
		if err := sess.StartScan(); err != nil {
			return nil, err
		}
	}
	text, err := s.engine.ScanBytes(data)
	if err != nil {
		if !errors.Is(err, domain.ErrNoPayloadDetected) {
			err = fmt.Errorf("%w: %v", domain.ErrNoPayloadDetected, err)
		}
		return nil, sess.OnDecodeFailed(err)
	}
	return s.ApplyText(sess, text)
}

// ApplyText decodes transport text and feeds it to the session. This is the single entry point
// through which decoded payloads reach the state machine.
func (s *PaymentService) ApplyText(sess *session.Session, text string) (domain.Payload, error) {
	p, err := payload.Decode(text)
	if err != nil {
		s.log.Debug("payload rejected", zap.String("session_id", sess.ID()), zap.Error(err))
		return nil, sess.OnDecodeFailed(err)
	}
	if err := sess.OnPayloadDecoded(p); err != nil {
		return p, err
	}
	s.log.Info("payment request detected", zap.String("session_id", sess.ID()))
	return p, nil
}

// Confirm pays the pending request and mirrors the transaction to the journal. A journal failure is
// logged; the in-memory payment stands.
func (s *PaymentService) Confirm(ctx context.Context, sess *session.Session) (domain.Transaction, error) {
	tx, err := sess.Confirm()
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrInsufficientFunds) {
			outcome = "insufficient_funds"
		}
		paymentsTotal.WithLabelValues(outcome).Inc()
		s.log.Info("payment rejected", zap.String("session_id", sess.ID()), zap.Error(err))
		return domain.Transaction{}, err
	}
	paymentsTotal.WithLabelValues("confirmed").Inc()

	acct, err := sess.Account()
	if err == nil {
		err = s.journal.Record(ctx, store.Entry{SessionID: sess.ID(), Payer: acct, Tx: tx})
	}
	if err != nil {
		s.log.Warn("journal record failed", zap.String("tx_id", tx.ID), zap.Error(err))
	}

	s.log.Info("payment confirmed",
		zap.String("session_id", sess.ID()),
		zap.String("tx_id", tx.ID),
		zap.String("amount", tx.Amount.String()),
		zap.String("balance_after", tx.BalanceAfter.String()),
	)
	return tx, nil
}
