// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mdelaney/nutri-tui/internal/api"
)

// promptCredentials reads a username from stdin and a password without
// echo when stdin is a terminal.
func promptCredentials() (api.Credentials, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print(labelStyle.Render("Username: "))
	username, err := reader.ReadString('\n')
	if err != nil {
		return api.Credentials{}, fmt.Errorf("read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Print(labelStyle.Render("Password: "))
	var password string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return api.Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil {
			return api.Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if username == "" || password == "" {
		return api.Credentials{}, fmt.Errorf("username and password are required")
	}
	return api.Credentials{Username: username, Password: password}, nil
}

// RunLogin authenticates and stores the session locally.
func RunLogin(ctx context.Context, deps *Deps, args *Args) error {
	if deps.Session.Authenticated() {
		if u, ok := deps.Session.User(); ok {
			fmt.Println(warningStyle.Render(fmt.Sprintf("Already logged in as %s. Run `nutri logout` first.", u.Username)))
			return nil
		}
	}

	creds, err := promptCredentials()
	if err != nil {
		return err
	}

	user, err := deps.Client.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Logged in as %s.", user.Username)))
	return nil
}

// RunRegister creates an account and then logs in with the same
// credentials.
func RunRegister(ctx context.Context, deps *Deps, args *Args) error {
	creds, err := promptCredentials()
	if err != nil {
		return err
	}

	if err := deps.Client.Register(ctx, creds); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Println(successStyle.Render("Account created."))

	user, err := deps.Client.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login after register: %w", err)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Logged in as %s.", user.Username)))
	return nil
}

// RunLogout drops the stored session.
func RunLogout(ctx context.Context, deps *Deps, args *Args) error {
	if !deps.Session.Authenticated() {
		fmt.Println(mutedStyle.Render("Not logged in."))
		return nil
	}
	deps.Session.End()
	fmt.Println(successStyle.Render("Logged out."))
	return nil
}
