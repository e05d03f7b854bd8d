// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mdelaney/nutri-tui/internal/api"
)

// RunStatus shows the session, server, and transcript state.
func RunStatus(ctx context.Context, deps *Deps, args *Args) error {
	username := ""
	if u, ok := deps.Session.User(); ok {
		username = u.Username
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"server":           deps.Client.BaseURL(),
			"logged_in":        deps.Session.Authenticated(),
			"username":         username,
			"messages":         deps.Store.Len(),
			"persist_failures": deps.Store.PersistFailures(),
		})
	}

	fmt.Printf("%s %s\n", labelStyle.Render("server: "), valueStyle.Render(deps.Client.BaseURL()))
	if deps.Session.Authenticated() {
		fmt.Printf("%s %s\n", labelStyle.Render("session:"), successStyle.Render("logged in as "+username))
	} else {
		fmt.Printf("%s %s\n", labelStyle.Render("session:"), mutedStyle.Render("not logged in"))
	}
	fmt.Printf("%s %s\n", labelStyle.Render("chat:   "),
		valueStyle.Render(fmt.Sprintf("%d stored messages", deps.Store.Len())))
	if n := deps.Store.PersistFailures(); n > 0 {
		fmt.Printf("%s %s\n", labelStyle.Render("storage:"),
			warningStyle.Render(fmt.Sprintf("%d failed transcript writes", n)))
	}

	// Reachability probe, only meaningful when logged in.
	if deps.Session.Authenticated() {
		if _, err := deps.Client.DailyNeeds(ctx); err == nil {
			fmt.Printf("%s %s\n", labelStyle.Render("reach:  "), successStyle.Render("server responding"))
		} else {
			fmt.Printf("%s %s\n", labelStyle.Render("reach:  "), errorStyle.Render(reachText(err)))
		}
	}
	return nil
}

func reachText(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("server responded with %d: %s", apiErr.Code, apiErr.Message)
	}
	return "server unreachable"
}
