// Package history renders the transaction list newest first.
package history

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/qrpay/internal/domain"
)

const DateLayout = "2006-01-02 15:04:05"

// Entry is one transaction prepared for display. Number is its chronological position, starting at 1.
type Entry struct {
	Number       int    `json:"number"`
	ID           string `json:"id"`
	Date         string `json:"date"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	Recipient    string `json:"recipient"`
	RecipientID  string `json:"recipient_cnic"`
	BalanceAfter string `json:"balance_after"`
}

// FormatMoney renders d with two decimals behind the currency label, e.g. "PKR 40.00".
func FormatMoney(currency string, d decimal.Decimal) string {
	if currency == "" {
		return d.StringFixed(2)
	}
	return currency + " " + d.StringFixed(2)
}

// Entries converts append-ordered transactions into display entries, newest first.
func Entries(txs []domain.Transaction, currency string) []Entry {
	out := make([]Entry, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		out = append(out, Entry{
			Number:       i + 1,
			ID:           tx.ID,
			Date:         tx.Timestamp.Format(DateLayout),
			Type:         titleCase(string(tx.Kind)),
			Amount:       FormatMoney(currency, tx.Amount),
			Recipient:    tx.CounterpartyName,
			RecipientID:  tx.CounterpartyCNIC,
			BalanceAfter: FormatMoney(currency, tx.BalanceAfter),
		})
	}
	return out
}

// Render writes the text listing of txs.
func Render(w io.Writer, txs []domain.Transaction, currency string) error {
	if len(txs) == 0 {
		_, err := io.WriteString(w, "No Transactions Yet\n\nYour transaction history will appear here after you make your first payment.\n")
		return err
	}
	for _, e := range Entries(txs, currency) {
		_, err := fmt.Fprintf(w, "Transaction #%d\n  Date: %s\n  Type: %s\n  Amount: %s\n  Recipient: %s\n  Recipient CNIC: %s\n  Balance After: %s\n",
			e.Number, e.Date, e.Type, e.Amount, e.Recipient, e.RecipientID, e.BalanceAfter)
		if err != nil {
			return err
		}
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
