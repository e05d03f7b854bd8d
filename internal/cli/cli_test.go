// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"testing"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"no args starts tui", nil, CmdTUI},
		{"explicit tui", []string{"tui"}, CmdTUI},
		{"ask", []string{"ask", "how", "much", "protein"}, CmdAsk},
		{"chat", []string{"chat"}, CmdChat},
		{"login", []string{"login"}, CmdLogin},
		{"register", []string{"register"}, CmdRegister},
		{"logout", []string{"logout"}, CmdLogout},
		{"status", []string{"status"}, CmdStatus},
		{"status alias", []string{"s"}, CmdStatus},
		{"log", []string{"log", "list"}, CmdLog},
		{"summary", []string{"summary"}, CmdSummary},
		{"needs", []string{"needs"}, CmdNeeds},
		{"week", []string{"week"}, CmdWeek},
		{"profile", []string{"profile"}, CmdProfile},
		{"config", []string{"config", "show"}, CmdConfig},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"--help"}, CmdHelp},
		{"unknown falls back to help", []string{"frobnicate"}, CmdHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := Parse(tt.argv)
			if cmd != tt.want {
				t.Errorf("Parse(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
		})
	}
}

func TestParseAskJoinsQuery(t *testing.T) {
	cmd, args := Parse([]string{"ask", "what", "should", "I", "eat?"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.Query != "what should I eat?" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParseFlags(t *testing.T) {
	cmd, args := Parse([]string{"summary", "--date", "2025-06-01", "--json", "-q"})
	if cmd != CmdSummary {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.Date != "2025-06-01" {
		t.Errorf("date = %q", args.Date)
	}
	if !args.JSON || !args.Quiet {
		t.Errorf("flags = %+v", args)
	}
}

func TestParseOptions(t *testing.T) {
	_, args := Parse([]string{"log", "add", "--food", "101", "--qty", "1.5", "--meal=lunch"})
	if args.Subcommand != "add" {
		t.Errorf("subcommand = %q", args.Subcommand)
	}
	if args.Options["food"] != "101" || args.Options["qty"] != "1.5" || args.Options["meal"] != "lunch" {
		t.Errorf("options = %+v", args.Options)
	}
}

func TestParseSubcommandAndRaw(t *testing.T) {
	_, args := Parse([]string{"log", "del", "42"})
	if args.Subcommand != "del" {
		t.Errorf("subcommand = %q", args.Subcommand)
	}
	if len(args.Raw) != 2 || args.Raw[1] != "42" {
		t.Errorf("raw = %v", args.Raw)
	}
}

func TestExchangeCancelerFiresOnlyWhileArmed(t *testing.T) {
	var c exchangeCanceler
	c.fire() // unarmed, must not panic

	ctx, cancel := context.WithCancel(context.Background())
	c.arm(cancel)
	c.fire()
	if ctx.Err() == nil {
		t.Error("armed exchange not canceled by fire")
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	c.arm(cancel2)
	c.disarm()
	c.fire()
	if ctx2.Err() != nil {
		t.Error("fire canceled a disarmed exchange")
	}
}

func TestExchangeCancelerConcurrentFire(t *testing.T) {
	// The signal goroutine fires while the REPL loop arms and disarms;
	// the handoff must stay race-free.
	var c exchangeCanceler
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_, cancel := context.WithCancel(context.Background())
			c.arm(cancel)
			c.disarm()
			cancel()
		}
	}()
	for {
		select {
		case <-done:
			return
		default:
			c.fire()
		}
	}
}
