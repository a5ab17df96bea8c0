// Package payload converts QR payloads to and from the JSON text carried inside a QR symbol.
package payload

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/qrpay/internal/domain"
)

type userInfoRecord struct {
	Type    domain.PayloadKind `json:"type"`
	Name    string             `json:"name"`
	CNIC    string             `json:"cnic"`
	Balance json.Number        `json:"balance"`
}

type paymentRecord struct {
	Type       domain.PayloadKind `json:"type"`
	Sender     string             `json:"sender"`
	SenderCNIC string             `json:"sender_cnic"`
	Amount     json.Number        `json:"amount"`
}

// Encode serializes p into transport text. Amounts are written as JSON numbers.
func Encode(p domain.Payload) (string, error) {
	var rec any
	switch v := p.(type) {
	case domain.UserInfo:
		if err := validateUserInfo(v); err != nil {
			return "", err
		}
		rec = userInfoRecord{Type: domain.KindUserInfo, Name: v.Name, CNIC: v.CNIC, Balance: json.Number(v.Balance.String())}
	case domain.PaymentRequest:
		if err := validatePayment(v); err != nil {
			return "", err
		}
		rec = paymentRecord{Type: domain.KindPayment, Sender: v.Sender, SenderCNIC: v.SenderCNIC, Amount: json.Number(v.Amount.String())}
	default:
		return "", fmt.Errorf("%w: %T", domain.ErrUnrecognizedTag, p)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

// Decode parses and classifies transport text. A payload is either returned complete or rejected.
func Decode(text string) (domain.Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedTransport, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", domain.ErrMalformedTransport)
	}

	var tag string
	raw, ok := fields["type"]
	if !ok || json.Unmarshal(raw, &tag) != nil {
		return nil, domain.ErrUnrecognizedTag
	}

	switch domain.PayloadKind(tag) {
	case domain.KindPayment:
		return decodePayment(fields)
	case domain.KindUserInfo:
		return decodeUserInfo(fields)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnrecognizedTag, tag)
	}
}

func decodePayment(fields map[string]json.RawMessage) (domain.Payload, error) {
	amount, err := numberField(fields, "amount")
	if err != nil {
		return nil, err
	}
	sender, err := stringField(fields, "sender")
	if err != nil {
		return nil, err
	}
	cnic, err := stringField(fields, "sender_cnic")
	if err != nil {
		return nil, err
	}

	p := domain.PaymentRequest{Sender: sender, SenderCNIC: cnic, Amount: amount}
	if err := validatePayment(p); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeUserInfo(fields map[string]json.RawMessage) (domain.Payload, error) {
	name, err := stringField(fields, "name")
	if err != nil {
		return nil, err
	}
	cnic, err := stringField(fields, "cnic")
	if err != nil {
		return nil, err
	}
	balance, err := numberField(fields, "balance")
	if err != nil {
		return nil, err
	}

	u := domain.UserInfo{Name: name, CNIC: cnic, Balance: balance}
	if err := validateUserInfo(u); err != nil {
		return nil, err
	}
	return u, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", domain.ErrMalformedTransport, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %q is not a string", domain.ErrMalformedTransport, key)
	}
	return s, nil
}

// numberField accepts JSON numbers only; numeric strings are rejected.
func numberField(fields map[string]json.RawMessage, key string) (decimal.Decimal, error) {
	raw, ok := fields[key]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: missing %q", domain.ErrInvalidAmount, key)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || strings.HasPrefix(strings.TrimSpace(string(raw)), `"`) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidAmount, key)
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidAmount, key)
	}
	return d, nil
}

func validatePayment(p domain.PaymentRequest) error {
	if !p.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if err := domain.CheckMoney(p.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(p.Sender) == "" {
		return fmt.Errorf("%w: empty sender", domain.ErrMalformedTransport)
	}
	if !domain.IsValidCNIC(p.SenderCNIC) {
		return domain.ErrInvalidCNIC
	}
	return nil
}

func validateUserInfo(u domain.UserInfo) error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: empty name", domain.ErrMalformedTransport)
	}
	if !domain.IsValidCNIC(u.CNIC) {
		return domain.ErrInvalidCNIC
	}
	if u.Balance.IsNegative() {
		return fmt.Errorf("%w: balance must not be negative", domain.ErrInvalidAmount)
	}
	if err := domain.CheckMoney(u.Balance); err != nil {
		return err
	}
	return nil
}
