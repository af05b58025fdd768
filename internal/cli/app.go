// Package cli implements the terminal frontend: subcommand dispatch, the
// interactive test loop, and match-pairing practice. Everything here talks
// to the backend through the api client; no business rules live in the UI.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flashdeck/flashdeck-cli/internal/api"
	"github.com/flashdeck/flashdeck-cli/internal/auth"
	"github.com/flashdeck/flashdeck-cli/internal/config"
	"github.com/flashdeck/flashdeck-cli/internal/storage"
)

// App wires the client stack behind the subcommands. Out is the terminal;
// tests substitute a buffer.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Store
	auth   *auth.Manager
	client *api.Client

	in  *bufio.Reader
	out io.Writer
}

func NewApp(cfg *config.Config, logger *slog.Logger, store storage.Store, manager *auth.Manager, client *api.Client, in io.Reader, out io.Writer) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		auth:   manager,
		client: client,
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// Run dispatches one subcommand. The returned error is already
// user-presentable; main only sets the exit code.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.cmdRegister(ctx, rest)
	case "login":
		return a.cmdLogin(ctx, rest)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "decks":
		return a.cmdDecks(ctx, rest)
	case "deck":
		return a.cmdDeck(ctx, rest)
	case "cards":
		return a.cmdCards(ctx, rest)
	case "generate":
		return a.cmdGenerate(ctx, rest)
	case "export":
		return a.cmdExport(ctx, rest)
	case "import":
		return a.cmdImport(ctx, rest)
	case "test":
		return a.cmdTest(ctx, rest)
	case "match":
		return a.cmdMatch(ctx, rest)
	case "results":
		return a.cmdResults(ctx, rest)
	case "summary":
		return a.cmdSummary(ctx, rest)
	case "history":
		return a.cmdHistory(ctx, rest)
	case "stats":
		return a.cmdStats(ctx)
	case "random":
		return a.cmdRandom(ctx, rest)
	case "help", "-h", "--help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) usage() {
	fmt.Fprint(a.out, `flashdeck — terminal flashcard studying

Usage:
  flashdeck <command> [flags]

Account:
  register              create an account (prompts for credentials)
  login                 sign in and store tokens
  logout                sign out and clear stored tokens
  whoami                show the signed-in user

Decks and cards:
  decks                 list decks (-mine | -public | -starred | -search | -tag)
  deck                  manage one deck (create|show|update|delete|like|unlike|favorite|unfavorite)
  cards                 manage a deck's cards (list|add|show|delete)
  generate              draft a card with the AI endpoint
  export                write a deck to .xlsx or .csv
  import                bulk-add cards from .xlsx or .csv

Testing:
  test                  run a timed test over a deck
  match                 untimed match-pairing practice on one card
  results               full result for a session
  summary               condensed result for a session
  history               past sessions (-deck, -completed)
  stats                 aggregate statistics
  random                pick a random public deck
`)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// prompt prints a label and reads one trimmed line.
func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// friendly converts API errors into the messages users see; everything else
// passes through.
func friendly(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", api.FriendlyMessage(err))
}
