// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/history"
	"github.com/punchamoorthee/qrpay/internal/session"
)

// LoginRequest starts a session. Balance is optional and defaults to the configured opening balance.
type LoginRequest struct {
	Name    string           `json:"name"`
	CNIC    string           `json:"cnic"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

type PaymentQRRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PayloadRequest carries transport text decoded outside the server, e.g. by a browser scanner.
type PayloadRequest struct {
	Text string `json:"text"`
}

// ScanResponse reports the outcome of classifying a payload together with the resulting session view.
type ScanResponse struct {
	Kind    domain.PayloadKind `json:"kind,omitempty"`
	Session session.View       `json:"session"`
}

type ConfirmResponse struct {
	Transaction domain.Transaction `json:"transaction"`
	Message     string             `json:"message"`
	Session     session.View       `json:"session"`
}

type TransactionsResponse struct {
	Currency     string          `json:"currency"`
	Transactions []history.Entry `json:"transactions"`
}

type ErrorResponse struct {
	Error   string        `json:"error"`
	Session *session.View `json:"session,omitempty"`
}
