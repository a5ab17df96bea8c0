package domain

import "errors"

// Input validation
var (
	ErrInvalidName   = errors.New("name is required")
	ErrInvalidCNIC   = errors.New("CNIC must be in the exact format 00000-0000000-0")
	ErrInvalidAmount = errors.New("amount must be a positive number")
)

// QR payload
var (
	ErrMalformedTransport = errors.New("could not parse QR code data")
	ErrUnrecognizedTag    = errors.New("unrecognized QR code type")
	ErrNotPaymentRequest  = errors.New("QR code is not a payment request")
	ErrNoPayloadDetected  = errors.New("no QR code detected")
)

// Ledger and session
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTransition = errors.New("operation not allowed in current scan state")
	ErrNotLoggedIn       = errors.New("no account is logged in")
)
