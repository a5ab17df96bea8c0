package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the identity and balance of the logged-in user.
type Account struct {
	Name    string          `json:"name"`
	CNIC    string          `json:"cnic"`
	Balance decimal.Decimal `json:"balance"`
}

// PayloadKind is the value of the "type" field carried by a QR payload.
type PayloadKind string

const (
	KindUserInfo PayloadKind = "user_info"
	KindPayment  PayloadKind = "payment"
)

// Payload is the decoded content of a QR symbol. It is either a UserInfo or a PaymentRequest.
type Payload interface {
	Kind() PayloadKind
}

// UserInfo is informational only; scanning it has no side effect.
type UserInfo struct {
	Name    string          `json:"name"`
	CNIC    string          `json:"cnic"`
	Balance decimal.Decimal `json:"balance"`
}

func (UserInfo) Kind() PayloadKind { return KindUserInfo }

// PaymentRequest asks the scanning user to pay Amount to Sender.
type PaymentRequest struct {
	Sender     string          `json:"sender"`
	SenderCNIC string          `json:"sender_cnic"`
	Amount     decimal.Decimal `json:"amount"`
}

func (PaymentRequest) Kind() PayloadKind { return KindPayment }

// TransactionKind classifies ledger records. Only payments exist today.
type TransactionKind string

const KindPaymentTx TransactionKind = "payment"

// Transaction is the immutable record of one confirmed payment.
type Transaction struct {
	ID               string          `json:"id"`
	Timestamp        time.Time       `json:"timestamp"`
	Kind             TransactionKind `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	CounterpartyName string          `json:"counterparty_name"`
	CounterpartyCNIC string          `json:"counterparty_cnic"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
}

// ScanState tracks where the session is in the scan-and-pay cycle.
type ScanState string

const (
	ScanIdle      ScanState = "idle"
	ScanScanning  ScanState = "scanning"
	ScanDetected  ScanState = "detected"
	ScanConfirmed ScanState = "confirmed"
)
