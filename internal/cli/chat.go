// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"

	"github.com/mdelaney/nutri-tui/internal/chat"
	"github.com/mdelaney/nutri-tui/internal/config"
	"github.com/mdelaney/nutri-tui/internal/model"
)

// exchangeCanceler hands the in-flight exchange's cancel func between
// the REPL loop and the signal goroutine.
type exchangeCanceler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *exchangeCanceler) arm(fn context.CancelFunc) {
	c.mu.Lock()
	c.cancel = fn
	c.mu.Unlock()
}

func (c *exchangeCanceler) disarm() {
	c.arm(nil)
}

// fire cancels the armed exchange, if any.
func (c *exchangeCanceler) fire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// inputReader wraps liner with persistent input history.
type inputReader struct {
	line        *liner.State
	historyFile string
}

func newInputReader() *inputReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &inputReader{
		line:        line,
		historyFile: filepath.Join(dir, "input_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *inputReader) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *inputReader) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// RunChat starts the line-oriented coaching REPL.
func RunChat(ctx context.Context, deps *Deps, args *Args) error {
	if !deps.Session.Authenticated() {
		return fmt.Errorf("not logged in, run `nutri login` first")
	}

	// Start from the server's copy of the conversation; a fetch
	// failure falls back to the local mirror.
	_ = deps.Store.Sync(ctx)

	reader := newInputReader()
	defer reader.close()

	if !args.Quiet {
		if u, ok := deps.Session.User(); ok {
			fmt.Println(coachStyle.Render("nutri coach") + mutedStyle.Render(" · "+u.Username))
		}
		fmt.Println(mutedStyle.Render("Type a message, /help for commands, ctrl+d to exit."))
	}

	// Ctrl+C during an exchange cancels it instead of killing the REPL.
	var canceler exchangeCanceler
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			canceler.fire()
		}
	}()

	for {
		input, err := reader.read(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF both end the session.
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
			}
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := handleSlashCommand(ctx, deps, input)
			if err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("[error]")+" "+err.Error())
			}
			if quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		exchangeCtx, cancel := context.WithCancel(ctx)
		canceler.arm(cancel)
		reply, err := deps.Orch.Send(exchangeCtx, input)
		canceler.disarm()
		cancel()

		switch {
		case errors.Is(err, chat.ErrIgnored):
			// Nothing to do.
		case errors.Is(err, chat.ErrTimedOut):
			fmt.Fprintln(os.Stderr, warningStyle.Render("The coach took too long to answer."))
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(os.Stderr, warningStyle.Render("[canceled]"))
		case err != nil:
			fmt.Fprintln(os.Stderr, errorStyle.Render("[error]")+" "+err.Error())
		default:
			fmt.Print(coachStyle.Render("coach> "))
			displayReply(reply)
		}
	}
}

// handleSlashCommand executes a REPL slash command. It reports whether
// the REPL should exit.
func handleSlashCommand(ctx context.Context, deps *Deps, input string) (bool, error) {
	switch strings.Fields(input)[0] {
	case "/help":
		fmt.Println(mutedStyle.Render(`/history   show the stored transcript
/clear     clear the transcript locally and on the server
/logout    drop the session and exit
/quit      exit`))
		return false, nil

	case "/history":
		msgs := deps.Store.Messages()
		if len(msgs) == 0 {
			fmt.Println(mutedStyle.Render("No messages yet."))
			return false, nil
		}
		for _, msg := range msgs {
			printTranscriptMessage(msg)
		}
		return false, nil

	case "/clear":
		deps.Store.Clear()
		if err := deps.Client.ClearChatHistory(ctx); err != nil {
			return false, fmt.Errorf("clear server transcript: %w", err)
		}
		fmt.Println(successStyle.Render("Transcript cleared."))
		return false, nil

	case "/logout":
		deps.Session.End()
		fmt.Println(successStyle.Render("Logged out."))
		return true, nil

	case "/quit", "/exit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q, try /help", input)
	}
}

func printTranscriptMessage(msg model.Message) {
	if msg.Role == model.RoleAssistant {
		fmt.Print(coachStyle.Render("coach> "))
		displayReply(msg.Content)
		return
	}
	fmt.Println(promptStyle.Render("you> ") + msg.Content)
}
