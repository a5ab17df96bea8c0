package payload

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/qrpay/internal/domain"
)

func TestRoundTripPayment(t *testing.T) {
	t.Parallel()

	for _, amount := range []string{"1", "40", "40.5", "0.01", "1234567.89"} {
		in := domain.PaymentRequest{Sender: "Ali Khan", SenderCNIC: "12345-1234567-1", Amount: decimal.RequireFromString(amount)}

		text, err := Encode(in)
		require.NoError(t, err)

		out, err := Decode(text)
		require.NoError(t, err)

		got, ok := out.(domain.PaymentRequest)
		require.True(t, ok, "decoded %T", out)
		assert.Equal(t, in.Sender, got.Sender)
		assert.Equal(t, in.SenderCNIC, got.SenderCNIC)
		assert.True(t, in.Amount.Equal(got.Amount), "amount %s != %s", in.Amount, got.Amount)
	}
}

func TestRoundTripUserInfo(t *testing.T) {
	t.Parallel()

	for _, balance := range []string{"0", "5000", "99.95"} {
		in := domain.UserInfo{Name: "Sara", CNIC: "54321-7654321-9", Balance: decimal.RequireFromString(balance)}

		text, err := Encode(in)
		require.NoError(t, err)

		out, err := Decode(text)
		require.NoError(t, err)

		got, ok := out.(domain.UserInfo)
		require.True(t, ok, "decoded %T", out)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.CNIC, got.CNIC)
		assert.True(t, in.Balance.Equal(got.Balance))
	}
}

func TestEncodeWritesNumbers(t *testing.T) {
	t.Parallel()

	text, err := Encode(domain.PaymentRequest{Sender: "A", SenderCNIC: "12345-1234567-1", Amount: decimal.RequireFromString("40.25")})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &fields))
	assert.Equal(t, "payment", fields["type"])
	assert.Equal(t, "A", fields["sender"])
	assert.Equal(t, "12345-1234567-1", fields["sender_cnic"])
	assert.IsType(t, float64(0), fields["amount"])
	assert.InDelta(t, 40.25, fields["amount"], 1e-9)
}

func TestEncodeRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := Encode(domain.PaymentRequest{Sender: "A", SenderCNIC: "12345-1234567-1", Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = Encode(domain.PaymentRequest{Sender: "A", SenderCNIC: "1234-1234567-1", Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrInvalidCNIC)

	_, err = Encode(domain.UserInfo{Name: "", CNIC: "12345-1234567-1"})
	assert.ErrorIs(t, err, domain.ErrMalformedTransport)

	_, err = Encode(nil)
	assert.ErrorIs(t, err, domain.ErrUnrecognizedTag)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want error
	}{
		{"not json", "not json", domain.ErrMalformedTransport},
		{"empty", "", domain.ErrMalformedTransport},
		{"array", `[1,2]`, domain.ErrMalformedTransport},
		{"bare string", `"payment"`, domain.ErrMalformedTransport},
		{"other tag", `{"type":"other"}`, domain.ErrUnrecognizedTag},
		{"missing tag", `{"sender":"A","amount":5}`, domain.ErrUnrecognizedTag},
		{"numeric tag", `{"type":7}`, domain.ErrUnrecognizedTag},
		{"null", `null`, domain.ErrMalformedTransport},
		{"negative amount", `{"type":"payment","sender":"A","sender_cnic":"...","amount":-5}`, domain.ErrInvalidAmount},
		{"zero amount", `{"type":"payment","sender":"A","sender_cnic":"12345-1234567-1","amount":0}`, domain.ErrInvalidAmount},
		{"missing amount", `{"type":"payment","sender":"A","sender_cnic":"12345-1234567-1"}`, domain.ErrInvalidAmount},
		{"string amount", `{"type":"payment","sender":"A","sender_cnic":"12345-1234567-1","amount":"40"}`, domain.ErrInvalidAmount},
		{"bool amount", `{"type":"payment","sender":"A","sender_cnic":"12345-1234567-1","amount":true}`, domain.ErrInvalidAmount},
		{"null amount", `{"type":"payment","sender":"A","sender_cnic":"12345-1234567-1","amount":null}`, domain.ErrInvalidAmount},
		{"missing sender", `{"type":"payment","sender_cnic":"12345-1234567-1","amount":5}`, domain.ErrMalformedTransport},
		{"bad sender cnic", `{"type":"payment","sender":"A","sender_cnic":"12345","amount":5}`, domain.ErrInvalidCNIC},
		{"negative balance", `{"type":"user_info","name":"A","cnic":"12345-1234567-1","balance":-1}`, domain.ErrInvalidAmount},
		{"sub-cent amount", `{"type":"payment","sender":"A","sender_cnic":"12345-1234567-1","amount":0.001}`, domain.ErrInvalidAmount},
		{"huge exponent amount", `{"type":"payment","sender":"A","sender_cnic":"12345-1234567-1","amount":1e20000000}`, domain.ErrInvalidAmount},
		{"amount over cap", `{"type":"payment","sender":"A","sender_cnic":"12345-1234567-1","amount":1000000000000.01}`, domain.ErrInvalidAmount},
		{"huge exponent balance", `{"type":"user_info","name":"A","cnic":"12345-1234567-1","balance":1e200000000}`, domain.ErrInvalidAmount},
		{"missing cnic", `{"type":"user_info","name":"A","balance":1}`, domain.ErrMalformedTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode(tc.in)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDecodeAcceptsFloatText(t *testing.T) {
	t.Parallel()

	p, err := Decode(`{"type": "payment", "sender": "Ali", "sender_cnic": "12345-1234567-1", "amount": 250.0}`)
	require.NoError(t, err)
	req := p.(domain.PaymentRequest)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, domain.KindPayment, p.Kind())
}
