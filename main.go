// nutri - terminal client for the personal nutrition-tracking service.
//
// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mdelaney/nutri-tui/internal/api"
	"github.com/mdelaney/nutri-tui/internal/chat"
	"github.com/mdelaney/nutri-tui/internal/cli"
	"github.com/mdelaney/nutri-tui/internal/config"
	"github.com/mdelaney/nutri-tui/internal/session"
	"github.com/mdelaney/nutri-tui/internal/storage"
	"github.com/mdelaney/nutri-tui/internal/ui"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// A .env in the working directory can supply NUTRI_* overrides
	// during development; absence is not an error.
	_ = godotenv.Load()

	cmd, args := cli.Parse(os.Args[1:])

	switch cmd {
	case cli.CmdVersion:
		fmt.Println(cli.VersionString())
		return
	case cli.CmdHelp:
		fmt.Println(cli.Usage())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := openLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	deps, cleanup, err := wire(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = run(context.Background(), cmd, deps, args, log)
	cleanup()
	if err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches the parsed command.
func run(ctx context.Context, cmd cli.Command, deps *cli.Deps, args *cli.Args, log zerolog.Logger) error {
	switch cmd {
	case cli.CmdAsk:
		return cli.RunAsk(ctx, deps, args)
	case cli.CmdChat:
		return cli.RunChat(ctx, deps, args)
	case cli.CmdLogin:
		return cli.RunLogin(ctx, deps, args)
	case cli.CmdRegister:
		return cli.RunRegister(ctx, deps, args)
	case cli.CmdLogout:
		return cli.RunLogout(ctx, deps, args)
	case cli.CmdStatus:
		return cli.RunStatus(ctx, deps, args)
	case cli.CmdLog:
		return cli.RunLog(ctx, deps, args)
	case cli.CmdSummary:
		return cli.RunSummary(ctx, deps, args)
	case cli.CmdNeeds:
		return cli.RunNeeds(ctx, deps, args)
	case cli.CmdWeek:
		return cli.RunWeek(ctx, deps, args)
	case cli.CmdProfile:
		return cli.RunProfile(ctx, deps, args)
	case cli.CmdConfig:
		return cli.RunConfig(ctx, deps, args)
	default:
		return runTUI(deps, log)
	}
}

// wire builds the application services against the shared local store.
func wire(cfg *config.Config, log zerolog.Logger) (*cli.Deps, func(), error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open local storage: %w", err)
	}

	sess := session.New(store, log)
	client := api.NewClient(cfg.Server.BaseURL, sess, log).WithTimeout(cfg.Timeout())

	chatStore := chat.NewStore(store, log).WithRemote(client)
	poller := chat.NewPoller(client, log).
		WithInterval(cfg.PollInterval()).
		WithBudget(cfg.Chat.PollBudget)
	orch := chat.NewOrchestrator(client, chatStore, poller, log)

	deps := &cli.Deps{
		Config:  cfg,
		Client:  client,
		Session: sess,
		Store:   chatStore,
		Orch:    orch,
		Poller:  poller,
		Log:     log,
	}
	cleanup := func() {
		chatStore.Close()
		store.Close()
	}
	return deps, cleanup, nil
}

// runTUI starts the Bubble Tea interface.
func runTUI(deps *cli.Deps, log zerolog.Logger) error {
	// Reflect config file edits made while the TUI is running.
	if path, err := config.Path(); err == nil {
		watcher, err := config.NewWatcher(path, func(updated *config.Config) {
			if level, err := zerolog.ParseLevel(updated.Log.Level); err == nil {
				zerolog.SetGlobalLevel(level)
			}
			log.Info().Msg("configuration reloaded")
		})
		if err == nil && watcher.Watch() == nil {
			defer watcher.Close()
		} else {
			log.Warn().Err(err).Msg("config watcher unavailable")
		}
	}

	app := ui.NewApp(deps.Config, deps.Client, deps.Session, deps.Store, deps.Orch, log)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// openLogger writes structured logs to the config directory so the
// terminal stays clean for the TUI.
func openLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	if err := config.EnsureConfigDir(); err != nil {
		return zerolog.Nop(), nil, err
	}

	path := cfg.Log.Path
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		path = filepath.Join(dir, "nutri.log")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log := zerolog.New(f).With().Timestamp().Str("version", Version).Logger()
	return log, func() { f.Close() }, nil
}
