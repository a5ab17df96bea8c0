package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/punchamoorthee/qrpay/internal/config"
	"github.com/punchamoorthee/qrpay/internal/logger"
	"github.com/punchamoorthee/qrpay/internal/qr"
	"github.com/punchamoorthee/qrpay/internal/service"
	"github.com/punchamoorthee/qrpay/internal/store"
	"github.com/punchamoorthee/qrpay/internal/tui"
)

const logFile = "qrpay-desktop.log"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: .env not loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	zl, err := logger.NewFile(cfg.Env, logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer zl.Sync()

	// The desktop app keeps confirmed payments in memory for the lifetime of the window.
	journal := &store.MemoryJournal{}
	engine := qr.NewEngine(cfg.QRModulePixels, cfg.MaxFrameWidth)
	svc := service.NewPaymentService(engine, journal, zl, service.Options{
		Currency:       cfg.Currency,
		OpeningBalance: cfg.OpeningBalance,
	})

	p := tea.NewProgram(tui.New(svc, zl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	fmt.Printf("%d payment(s) confirmed this session.\n", len(journal.Entries()))
}
