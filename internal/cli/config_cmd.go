// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mdelaney/nutri-tui/internal/config"
)

// RunConfig shows or edits the configuration file.
func RunConfig(ctx context.Context, deps *Deps, args *Args) error {
	switch args.Subcommand {
	case "set":
		return runConfigSet(deps, args)
	case "show", "":
		return runConfigShow(deps)
	default:
		return fmt.Errorf("unknown config subcommand %q (show, set)", args.Subcommand)
	}
}

func runConfigShow(deps *Deps) error {
	path, err := config.Path()
	if err == nil {
		fmt.Println(mutedStyle.Render(path))
	}
	cfg := deps.Config
	fmt.Printf("  %s %s\n", labelStyle.Render("server.url:        "), valueStyle.Render(cfg.Server.BaseURL))
	fmt.Printf("  %s %s\n", labelStyle.Render("server.timeout:    "), valueStyle.Render(fmt.Sprintf("%ds", cfg.Server.TimeoutSecs)))
	fmt.Printf("  %s %s\n", labelStyle.Render("chat.poll_interval:"), valueStyle.Render(fmt.Sprintf("%ds", cfg.Chat.PollIntervalSecs)))
	fmt.Printf("  %s %s\n", labelStyle.Render("chat.poll_budget:  "), valueStyle.Render(strconv.Itoa(cfg.Chat.PollBudget)))
	fmt.Printf("  %s %s\n", labelStyle.Render("ui.markdown:       "), valueStyle.Render(strconv.FormatBool(cfg.UI.Markdown)))
	fmt.Printf("  %s %s\n", labelStyle.Render("log.level:         "), valueStyle.Render(cfg.Log.Level))
	return nil
}

func runConfigSet(deps *Deps, args *Args) error {
	if len(args.Raw) < 3 {
		return fmt.Errorf("usage: nutri config set <key> <value>")
	}
	key, value := args.Raw[1], args.Raw[2]

	cfg := deps.Config
	switch key {
	case "server.url":
		cfg.Server.BaseURL = value
	case "server.timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("server.timeout must be seconds")
		}
		cfg.Server.TimeoutSecs = n
	case "chat.poll_interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("chat.poll_interval must be seconds")
		}
		cfg.Chat.PollIntervalSecs = n
	case "chat.poll_budget":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("chat.poll_budget must be a number")
		}
		cfg.Chat.PollBudget = n
	case "ui.markdown":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("ui.markdown must be true or false")
		}
		cfg.UI.Markdown = b
	case "log.level":
		cfg.Log.Level = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Println(successStyle.Render(key + " updated."))
	return nil
}
