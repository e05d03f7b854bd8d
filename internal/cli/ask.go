// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/mdelaney/nutri-tui/internal/chat"
)

// markdownRenderer is the shared glamour renderer for CLI output.
var markdownRenderer *glamour.TermRenderer

func init() {
	markdownRenderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
}

// renderMarkdown renders markdown for terminal display, falling back
// to the raw content when rendering is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayReply prints a coach reply, rendering markdown only when
// stdout is a TTY so piped output stays clean.
func displayReply(reply string) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(renderMarkdown(reply))
		return
	}
	fmt.Println(reply)
}

// RunAsk sends a single question to the coach and prints the reply.
// The exchange goes through the orchestrator, so it lands in the
// stored transcript like any chat message.
func RunAsk(ctx context.Context, deps *Deps, args *Args) error {
	if args.Query == "" {
		return fmt.Errorf("usage: nutri ask \"question\"")
	}
	if !deps.Session.Authenticated() {
		return fmt.Errorf("not logged in, run `nutri login` first")
	}

	if !args.Quiet {
		fmt.Fprintln(os.Stderr, mutedStyle.Render("Asking the coach..."))
	}

	// Carry the server-side conversation as context for the question.
	_ = deps.Store.Sync(ctx)

	reply, err := deps.Orch.Send(ctx, args.Query)
	if err != nil {
		if errors.Is(err, chat.ErrTimedOut) {
			return fmt.Errorf("the coach took too long to answer")
		}
		return err
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"question": args.Query,
			"reply":    reply,
		})
	}
	displayReply(reply)
	return nil
}
