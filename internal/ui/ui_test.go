// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"testing"

	"github.com/mdelaney/nutri-tui/internal/api"
	"github.com/mdelaney/nutri-tui/internal/chat"
)

func TestSendErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", chat.ErrTimedOut, "The coach took too long to answer. Try again."},
		{"expired", api.ErrSessionExpired, "Session expired."},
		{"network", fmt.Errorf("%w: refused", api.ErrNetwork), "Could not reach the server."},
		{"canceled", context.Canceled, "Canceled."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sendErrorText(tt.err); got != tt.want {
				t.Errorf("sendErrorText(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestLoginErrorText(t *testing.T) {
	apiErr := &api.Error{Code: 401, Message: "invalid credentials", Status: 401}
	if got := loginErrorText(apiErr); got != "invalid credentials" {
		t.Errorf("loginErrorText = %q", got)
	}
	if got := loginErrorText(fmt.Errorf("%w: refused", api.ErrNetwork)); got != "Could not reach the server. Is it running?" {
		t.Errorf("loginErrorText = %q", got)
	}
}
