package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/punchamoorthee/qrpay/internal/domain"
	"github.com/punchamoorthee/qrpay/internal/history"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("QRPay"))
	b.WriteString("\n\n")

	if m.screen == screenLogin {
		b.WriteString(m.loginView())
		b.WriteString("\n")
		b.WriteString(m.statusLine())
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("tab: next field • enter: log in • ctrl+c: quit"))
		return b.String()
	}

	b.WriteString(m.accountLine())
	b.WriteString("\n\n")
	b.WriteString(m.tabsLine())
	b.WriteString("\n\n")
	switch m.tab {
	case tabMyQR:
		b.WriteString(m.myQRView())
	case tabGenerate:
		b.WriteString(m.generateView())
	case tabScan:
		b.WriteString(m.scanView())
	case tabHistory:
		b.WriteString(m.historyView())
	}
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("tab: switch • ctrl+l: log out • ctrl+c: quit"))
	return b.String()
}

func (m Model) loginView() string {
	rows := make([]string, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		label := labelStyle.Render(fieldLabels[i] + ":")
		value := m.fields[i]
		if i == m.focus {
			label = focusStyle.Render("> " + fieldLabels[i] + ":")
			value += "_"
		}
		rows = append(rows, label+" "+value)
	}
	return panelStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) accountLine() string {
	acct, err := m.sess.Account()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s  %s  %s",
		acct.Name, labelStyle.Render(acct.CNIC), infoStyle.Render(history.FormatMoney(m.svc.Currency(), acct.Balance)))
}

func (m Model) tabsLine() string {
	parts := make([]string, 0, tabCount)
	for i, name := range tabNames {
		if tab(i) == m.tab {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) myQRView() string {
	if m.qrArt == "" {
		return labelStyle.Render("No code available.")
	}
	return m.qrArt + "\n" + labelStyle.Render("Share this code so others can see your details. r: refresh")
}

func (m Model) generateView() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Amount ("+m.svc.Currency()+"):") + " " + m.amount + "_\n")
	b.WriteString(labelStyle.Render("enter: generate a payment QR that others can scan to pay you"))
	if m.qrArt != "" {
		b.WriteString("\n\n")
		b.WriteString(m.qrArt)
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(m.qrText))
	}
	return b.String()
}

func (m Model) scanView() string {
	view := m.sess.View()
	var b strings.Builder
	b.WriteString(labelStyle.Render("State:") + " " + string(view.State) + "\n\n")

	switch view.State {
	case domain.ScanDetected:
		p := view.Pending
		body := fmt.Sprintf("Pay %s to %s (%s)?",
			history.FormatMoney(m.svc.Currency(), p.Amount), p.Sender, p.SenderCNIC)
		b.WriteString(panelStyle.Render(body))
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("y: confirm payment • n: cancel"))
	case domain.ScanConfirmed:
		if view.Last != nil {
			b.WriteString(successStyle.Render(fmt.Sprintf("Paid %s to %s. Transaction %s.",
				history.FormatMoney(m.svc.Currency(), view.Last.Amount), view.Last.CounterpartyName, view.Last.ID)))
			b.WriteString("\n")
		}
		b.WriteString(labelStyle.Render("r: scan another code"))
	default:
		b.WriteString(focusStyle.Render("Image path:") + " " + m.path + "_\n")
		b.WriteString(labelStyle.Render("enter: scan the image • esc: stop scanning"))
	}
	return b.String()
}

func (m Model) historyView() string {
	var b strings.Builder
	if err := history.Render(&b, m.sess.View().Transactions, m.svc.Currency()); err != nil {
		return errorStyle.Render(err.Error())
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return successStyle.Render(m.status)
}
