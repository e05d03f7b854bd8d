// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"zero limit", "hello", 0, ""},
		{"tiny limit", "hello", 2, "he"},
		{"multibyte safe", "héllo wörld", 8, "héllo..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateRunes(tc.input, tc.max)
			if got != tc.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, expected %q", tc.input, tc.max, got, tc.expected)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	// CJK characters occupy two columns each.
	got := TruncateWidth("日本語テキスト", 7)
	if got != "日本..." {
		t.Errorf("TruncateWidth wide chars = %q, expected %q", got, "日本...")
	}

	if TruncateWidth("abc", 10) != "abc" {
		t.Error("TruncateWidth should not modify strings within the limit")
	}

	if TruncateWidth("abc", 0) != "" {
		t.Error("TruncateWidth with zero width should return empty string")
	}
}

func TestNormalizeInput(t *testing.T) {
	if NormalizeInput("  hello  ") != "hello" {
		t.Error("NormalizeInput should trim whitespace")
	}

	// Decomposed "é" (e + combining acute) must normalize to the composed form.
	decomposed := "café"
	if NormalizeInput(decomposed) != "café" {
		t.Errorf("NormalizeInput(%q) = %q, expected composed form", decomposed, NormalizeInput(decomposed))
	}

	if NormalizeInput("   ") != "" {
		t.Error("NormalizeInput of whitespace-only input should be empty")
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "state.json")

	if err := AtomicWriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back failed: %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("read back %q, expected %q", data, "v1")
	}

	// Overwrite must fully replace the previous content.
	if err := AtomicWriteFile(path, []byte("v2"), 0o600); err != nil {
		t.Fatalf("AtomicWriteFile overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "v2" {
		t.Errorf("read back %q after overwrite, expected %q", data, "v2")
	}

	// No temp files should remain.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected 1 file in dir, found %d", len(entries))
	}
}
