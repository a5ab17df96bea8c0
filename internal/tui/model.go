// Package tui is the terminal desktop front end: login, QR display and generation, scan-and-pay
// from an image file, and transaction history.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/history"
	"github.com/punchamoorthee/qrpay/internal/service"
	"github.com/punchamoorthee/qrpay/internal/session"
)

type screen int

const (
	screenLogin screen = iota
	screenMain
)

type tab int

const (
	tabMyQR tab = iota
	tabGenerate
	tabScan
	tabHistory
	tabCount
)

var tabNames = [tabCount]string{"My QR", "Generate QR", "Scan & Pay", "History"}

const (
	fieldName = iota
	fieldCNIC
	fieldBalance
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "CNIC (00000-0000000-0)", "Opening balance"}

// Model is the bubbletea model. It owns one session for the lifetime of the program window.
type Model struct {
	svc  *service.PaymentService
	sess *session.Session
	log  *zap.Logger

	screen screen
	tab    tab

	fields [fieldCount]string
	focus  int

	amount string
	path   string
	qrArt  string
	qrText string

	status    string
	statusErr bool
	width     int
}

func New(svc *service.PaymentService, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := Model{svc: svc, sess: svc.NewSession(), log: log}
	m.fields[fieldBalance] = svc.DefaultOpeningBalance().String()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.svc.EndSession(m.sess.ID())
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.updateMain(msg)
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.focus = (m.focus + 1) % fieldCount
	case "shift+tab", "up":
		m.focus = (m.focus + fieldCount - 1) % fieldCount
	case "enter":
		return m.login(), nil
	default:
		m.fields[m.focus] = editInput(m.fields[m.focus], msg)
	}
	return m, nil
}

func (m Model) login() Model {
	var opening *decimal.Decimal
	if raw := strings.TrimSpace(m.fields[fieldBalance]); raw != "" {
		b, err := decimal.NewFromString(raw)
		if err != nil {
			return m.fail("Balance must be a number.")
		}
		opening = &b
	}

	err := m.svc.Login(m.sess, m.fields[fieldName], strings.TrimSpace(m.fields[fieldCNIC]), opening)
	switch {
	case errors.Is(err, domain.ErrInvalidName):
		return m.fail("Please enter your name.")
	case errors.Is(err, domain.ErrInvalidCNIC):
		return m.fail("Invalid CNIC format. Use 00000-0000000-0.")
	case errors.Is(err, domain.ErrInvalidAmount):
		return m.fail("Opening balance cannot be negative.")
	case err != nil:
		return m.fail(err.Error())
	}

	acct, _ := m.sess.Account()
	m.screen = screenMain
	m.tab = tabMyQR
	m.refreshMyQR()
	return m.info("Welcome, " + acct.Name + ".")
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		return m.switchTab((m.tab + 1) % tabCount), nil
	case "shift+tab":
		return m.switchTab((m.tab + tabCount - 1) % tabCount), nil
	case "ctrl+l":
		return m.logout(), nil
	}

	switch m.tab {
	case tabMyQR:
		if msg.String() == "r" {
			m.refreshMyQR()
		}
	case tabGenerate:
		if msg.String() == "enter" {
			return m.generate(), nil
		}
		m.amount = editInput(m.amount, msg)
	case tabScan:
		return m.updateScan(msg), nil
	}
	return m, nil
}

func (m Model) switchTab(t tab) Model {
	m.tab = t
	m.status = ""
	switch t {
	case tabMyQR:
		m.refreshMyQR()
	case tabGenerate:
		m.qrArt, m.qrText = "", ""
	}
	return m
}

func (m Model) logout() Model {
	m.svc.EndSession(m.sess.ID())
	next := New(m.svc, m.log)
	next.width = m.width
	return next.info("Logged out.")
}

func (m *Model) refreshMyQR() {
	text, err := m.svc.UserInfoText(m.sess)
	if err == nil {
		m.qrArt, err = m.svc.Engine().Terminal(text)
	}
	if err != nil {
		m.qrArt, m.qrText = "", ""
		m.status, m.statusErr = err.Error(), true
		return
	}
	m.qrText = text
}

func (m Model) generate() Model {
	amount, err := decimal.NewFromString(strings.TrimSpace(m.amount))
	if err != nil || !amount.IsPositive() {
		return m.fail("Please enter a valid amount.")
	}
	text, err := m.svc.PaymentText(m.sess, amount)
	if err != nil {
		return m.fail(err.Error())
	}
	art, err := m.svc.Engine().Terminal(text)
	if err != nil {
		return m.fail(err.Error())
	}
	m.qrArt, m.qrText = art, text
	return m.info("Payment QR for " + history.FormatMoney(m.svc.Currency(), amount) + " generated.")
}

func (m Model) updateScan(msg tea.KeyMsg) Model {
	key := msg.String()
	switch m.sess.State() {
	case domain.ScanDetected:
		switch key {
		case "y", "enter":
			return m.confirm()
		case "n", "esc":
			return m.cancel()
		}
	case domain.ScanConfirmed:
		if key == "r" || key == "enter" {
			if err := m.sess.ResetAfterConfirmation(); err != nil {
				return m.fail(err.Error())
			}
			m.path = ""
			return m.info("Ready for the next scan.")
		}
	default:
		switch key {
		case "enter":
			return m.scanFile()
		case "esc":
			if m.sess.State() == domain.ScanScanning {
				return m.cancel()
			}
		default:
			m.path = editInput(m.path, msg)
		}
	}
	return m
}

func (m Model) scanFile() Model {
	path := strings.TrimSpace(m.path)
	if path == "" {
		return m.fail("Enter the path of a QR code image.")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return m.fail("Could not read image: " + err.Error())
	}
	if _, err := m.svc.ScanImage(m.sess, data); err != nil {
		m.log.Debug("scan rejected", zap.String("path", path), zap.Error(err))
		if notice := m.sess.View().Notice; notice != "" {
			return m.fail(notice)
		}
		return m.fail(err.Error())
	}
	return m.info("Valid payment QR code detected.")
}

func (m Model) confirm() Model {
	tx, err := m.svc.Confirm(context.Background(), m.sess)
	if errors.Is(err, domain.ErrInsufficientFunds) {
		acct, _ := m.sess.Account()
		pending := m.sess.View().Pending
		msg := "Insufficient funds."
		if pending != nil {
			msg = fmt.Sprintf("Insufficient funds. Balance %s, requested %s.",
				history.FormatMoney(m.svc.Currency(), acct.Balance), history.FormatMoney(m.svc.Currency(), pending.Amount))
		}
		return m.fail(msg)
	}
	if err != nil {
		return m.fail(err.Error())
	}
	return m.info(fmt.Sprintf("Payment of %s to %s successful. New balance: %s.",
		history.FormatMoney(m.svc.Currency(), tx.Amount), tx.CounterpartyName,
		history.FormatMoney(m.svc.Currency(), tx.BalanceAfter)))
}

func (m Model) cancel() Model {
	if err := m.sess.Cancel(); err != nil {
		return m.fail(err.Error())
	}
	return m.info("Payment cancelled.")
}

func (m Model) info(s string) Model {
	m.status, m.statusErr = s, false
	return m
}

func (m Model) fail(s string) Model {
	m.status, m.statusErr = s, true
	return m
}

// editInput applies a printable key or backspace to s.
func editInput(s string, msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyBackspace:
		r := []rune(s)
		if len(r) == 0 {
			return s
		}
		return string(r[:len(r)-1])
	case tea.KeySpace:
		return s + " "
	case tea.KeyRunes:
		return s + string(msg.Runes)
	}
	return s
}
