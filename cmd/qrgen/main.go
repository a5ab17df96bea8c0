package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/payload"
	"github.com/punchamoorthee/qrpay/internal/qr"
)

// qrgen writes QR fixtures for manual testing of the scanners.
func main() {
	kind := flag.String("type", "payment", "Payload type: payment | user_info")
	name := flag.String("name", "Ali Khan", "Sender (payment) or account holder (user_info) name")
	cnic := flag.String("cnic", "12345-1234567-1", "CNIC in 00000-0000000-0 form")
	amount := flag.String("amount", "40", "Requested amount (payment)")
	balance := flag.String("balance", "5000", "Advertised balance (user_info)")
	pixels := flag.Int("pixels", qr.DefaultModulePixels, "Pixels per QR module")
	out := flag.String("out", "", "Output PNG path (default: print to terminal)")
	flag.Parse()

	p, err := buildPayload(domain.PayloadKind(*kind), *name, *cnic, *amount, *balance)
	if err != nil {
		log.Fatalf("Invalid payload: %v", err)
	}
	text, err := payload.Encode(p)
	if err != nil {
		log.Fatalf("Encode failed: %v", err)
	}

	engine := qr.NewEngine(*pixels, qr.DefaultMaxFrameWidth)
	if *out == "" {
		art, err := engine.Terminal(text)
		if err != nil {
			log.Fatalf("Render failed: %v", err)
		}
		fmt.Print(art)
		fmt.Println(text)
		return
	}

	png, err := engine.Render(text)
	if err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	if err := os.WriteFile(*out, png, 0o644); err != nil {
		log.Fatalf("Write failed: %v", err)
	}
	log.Printf("Wrote %s payload to %s", p.Kind(), *out)
}

func buildPayload(kind domain.PayloadKind, name, cnic, amount, balance string) (domain.Payload, error) {
	switch kind {
	case domain.KindPayment:
		a, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
		}
		return domain.PaymentRequest{Sender: name, SenderCNIC: cnic, Amount: a}, nil
	case domain.KindUserInfo:
		b, err := decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
		}
		return domain.UserInfo{Name: name, CNIC: cnic, Balance: b}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnrecognizedTag, kind)
	}
}
