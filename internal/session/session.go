// Package session owns the logged-in account, its ledger and the scan-and-pay state machine.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/ledger"
)

// Session is one user's scan-and-pay context. It is created by the caller and passed explicitly;
// Init logs a user in and Reset logs them out.
type Session struct {
	mu sync.Mutex

	id      string
	account *domain.Account
	ledger  *ledger.Ledger
	state   domain.ScanState
	pending *domain.PaymentRequest
	last    *domain.Transaction
	notice  string

	ledgerOpts []ledger.Option
}

// View is a read-only snapshot used by the UI adapters.
type View struct {
	ID           string                 `json:"id"`
	LoggedIn     bool                   `json:"logged_in"`
	Account      *domain.Account        `json:"account,omitempty"`
	State        domain.ScanState       `json:"state"`
	Pending      *domain.PaymentRequest `json:"pending,omitempty"`
	Last         *domain.Transaction    `json:"last_transaction,omitempty"`
	Notice       string                 `json:"notice,omitempty"`
	Transactions []domain.Transaction   `json:"-"`
}

// New returns a logged-out session in the idle state.
func New(id string, opts ...ledger.Option) *Session {
	return &Session{id: id, state: domain.ScanIdle, ledgerOpts: opts}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Init validates the account details and logs the user in with a fresh ledger.
func (s *Session) Init(name, cnic string, opening decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrInvalidName
	}
	if !domain.IsValidCNIC(cnic) {
		return domain.ErrInvalidCNIC
	}
	l, err := ledger.New(opening, s.ledgerOpts...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.account = &domain.Account{Name: name, CNIC: cnic}
	s.ledger = l
	return nil
}

// Reset logs out, discarding the account, ledger and any scan progress.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Session) clear() {
	s.account = nil
	s.ledger = nil
	s.state = domain.ScanIdle
	s.pending = nil
	s.last = nil
	s.notice = ""
}

// StartScan moves idle to scanning and forgets any previously decoded payload.
func (s *Session) StartScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(domain.ScanIdle); err != nil {
		return err
	}
	s.state = domain.ScanScanning
	s.pending = nil
	s.notice = ""
	return nil
}

// OnPayloadDecoded accepts a decoded payload while scanning. Only a payment request moves the session
// to detected; anything else leaves it scanning with a notice and returns ErrNotPaymentRequest.
func (s *Session) OnPayloadDecoded(p domain.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(domain.ScanScanning); err != nil {
		return err
	}

	req, ok := p.(domain.PaymentRequest)
	if !ok {
		s.notice = domain.ErrNotPaymentRequest.Error()
		return domain.ErrNotPaymentRequest
	}
	s.pending = &req
	s.state = domain.ScanDetected
	s.notice = "Valid payment QR code detected."
	return nil
}

// OnDecodeFailed records a failed read while scanning. The session stays in scanning.
func (s *Session) OnDecodeFailed(cause error) error {
	if cause == nil {
		cause = domain.ErrNoPayloadDetected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(domain.ScanScanning); err != nil {
		return err
	}
	s.notice = noticeFor(cause)
	return cause
}

// Confirm pays the pending request. Insufficient funds keeps the session in detected.
func (s *Session) Confirm() (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(domain.ScanDetected); err != nil {
		return domain.Transaction{}, err
	}

	tx, err := s.ledger.ApplyPayment(s.pending.Amount, s.pending.Sender, s.pending.SenderCNIC)
	if err != nil {
		s.notice = noticeFor(err)
		return domain.Transaction{}, err
	}
	s.last = &tx
	s.pending = nil
	s.state = domain.ScanConfirmed
	s.notice = ""
	return tx, nil
}

// Cancel abandons scanning or a detected payment without touching the ledger.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(domain.ScanScanning, domain.ScanDetected); err != nil {
		return err
	}
	s.state = domain.ScanIdle
	s.pending = nil
	s.notice = ""
	return nil
}

// ResetAfterConfirmation returns a confirmed session to idle for the next scan.
func (s *Session) ResetAfterConfirmation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(domain.ScanConfirmed); err != nil {
		return err
	}
	s.state = domain.ScanIdle
	s.notice = ""
	return nil
}

// State returns the current scan state.
func (s *Session) State() domain.ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Account returns the logged-in account with its current balance.
func (s *Session) Account() (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return domain.Account{}, domain.ErrNotLoggedIn
	}
	acct := *s.account
	acct.Balance = s.ledger.Balance()
	return acct, nil
}

// View snapshots the session for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{ID: s.id, State: s.state, Notice: s.notice}
	if s.account == nil {
		return v
	}
	balance, history := s.ledger.Snapshot()
	acct := *s.account
	acct.Balance = balance
	v.LoggedIn = true
	v.Account = &acct
	v.Transactions = history
	if s.pending != nil {
		p := *s.pending
		v.Pending = &p
	}
	if s.last != nil {
		t := *s.last
		v.Last = &t
	}
	return v
}

// transition checks the session is logged in and in one of the allowed states. Callers hold mu.
func (s *Session) transition(from ...domain.ScanState) error {
	if s.account == nil {
		return domain.ErrNotLoggedIn
	}
	for _, st := range from {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidTransition, s.state)
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient funds."
	case errors.Is(err, domain.ErrNoPayloadDetected):
		return "No QR code detected. Keep scanning."
	case errors.Is(err, domain.ErrMalformedTransport):
		return "Could not parse QR code data."
	case errors.Is(err, domain.ErrUnrecognizedTag), errors.Is(err, domain.ErrNotPaymentRequest):
		return "Invalid QR code: not a payment request."
	default:
		return err.Error()
	}
}
