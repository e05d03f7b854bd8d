// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mdelaney/nutri-tui/internal/api"
	"github.com/mdelaney/nutri-tui/internal/chat"
	"github.com/mdelaney/nutri-tui/internal/config"
	"github.com/mdelaney/nutri-tui/internal/session"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdLogin
	CmdRegister
	CmdLogout
	CmdStatus
	CmdLog
	CmdSummary
	CmdNeeds
	CmdWeek
	CmdProfile
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool

	// Command-specific
	Query      string
	Date       string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string

	// Options holds named options (e.g. --food, --qty)
	Options map[string]string
}

// Deps bundles the wired application services the command handlers
// run against.
type Deps struct {
	Config  *config.Config
	Client  *api.Client
	Session *session.Session
	Store   *chat.Store
	Orch    *chat.Orchestrator
	Poller  *chat.Poller
	Log     zerolog.Logger
}

const usageText = `nutri - personal nutrition tracking from the terminal

Nutri is a client for the nutrition-tracking service: log meals, check
daily targets, and talk to an AI nutrition coach.

Usage:
  nutri                      Start TUI (default)
  nutri ask "question"       Ask the coach a single question
  nutri chat                 Interactive coaching chat
  nutri login                Log in and store the session
  nutri register             Create an account
  nutri logout               Drop the stored session
  nutri status, s            Show session and server status
  nutri log [add|list|del]   Manage food intake entries
  nutri summary [--date D]   Daily nutrient totals
  nutri needs                Daily intake targets
  nutri week                 Rolling 7-day report
  nutri profile [show|edit]  Body profile
  nutri config [show|set]    Configuration
  nutri version              Show version

Flags:
  --date YYYY-MM-DD   Date for log and summary commands (default today)
  --json              Machine-readable output
  -q, --quiet         Minimal output
  -v, --verbose       Verbose output

Examples:
  nutri ask "how much protein did I have today?"
  nutri log add --food 101 --qty 1.5 --meal lunch
  nutri summary --date 2025-06-01
  nutri config set server.url https://nutri.example.com`

// Usage returns the top-level help text.
func Usage() string {
	return usageText
}

// VersionString formats the build information.
func VersionString() string {
	return fmt.Sprintf("nutri %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}

// Parse interprets the command line (without the program name).
func Parse(argv []string) (Command, *Args) {
	args := &Args{Options: map[string]string{}}

	var positional []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--help":
			return CmdHelp, args
		case arg == "--version":
			return CmdVersion, args
		case arg == "--date":
			if i+1 < len(argv) {
				i++
				args.Date = argv[i]
			}
		case strings.HasPrefix(arg, "--"):
			key := strings.TrimPrefix(arg, "--")
			if eq := strings.IndexByte(key, '='); eq >= 0 {
				args.Options[key[:eq]] = key[eq+1:]
			} else if i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "-") {
				i++
				args.Options[key] = argv[i]
			} else {
				args.Options[key] = "true"
			}
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return CmdTUI, args
	}

	cmd := positional[0]
	rest := positional[1:]
	args.Raw = rest
	if len(rest) > 0 {
		args.Subcommand = rest[0]
	}

	switch cmd {
	case "tui":
		return CmdTUI, args
	case "ask":
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "login":
		return CmdLogin, args
	case "register":
		return CmdRegister, args
	case "logout":
		return CmdLogout, args
	case "status", "s":
		return CmdStatus, args
	case "log":
		return CmdLog, args
	case "summary":
		return CmdSummary, args
	case "needs":
		return CmdNeeds, args
	case "week":
		return CmdWeek, args
	case "profile":
		return CmdProfile, args
	case "config":
		return CmdConfig, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		return CmdHelp, args
	}
}
