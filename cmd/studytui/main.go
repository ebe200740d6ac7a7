// Command studytui is a read-only terminal dashboard for one user's
// weekly study plan and workload warnings, grounded on the teacher's
// cmd/daylit `tui` subcommand (open storage, build a Model, hand it to
// tea.NewProgram) but run as its own binary since this dashboard has
// no CRUD commands to share a CLI surface with.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smartstudy/companion/internal/config"
	"github.com/smartstudy/companion/internal/storage"
	"github.com/smartstudy/companion/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: studytui <user-id>")
		os.Exit(1)
	}
	userID := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "studytui: %v\n", err)
		os.Exit(1)
	}

	var store storage.Provider
	if cfg.DBDriver == "postgres" {
		store, err = storage.OpenPostgres(cfg.DBDSN)
	} else {
		store, err = storage.OpenSQLite(cfg.DBDSN)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "studytui: opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	model := tui.NewModel(context.Background(), store, userID)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "studytui: %v\n", err)
		os.Exit(1)
	}
}
