// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/vfxbootstrap/vfxb/internal/issue"
)

func TestFormatBytes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()
	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("unexpected plain formatting: %q", got)
	}

	actionable := issue.NewErrorContext().
		WithOperation("open build cache").
		WithSuggestion("Check permissions").
		Wrap(plain).
		BuildError()
	got := formatErrorForDisplay(actionable, false)
	if !strings.Contains(got, "Check permissions") {
		t.Errorf("expected suggestion in output, got %q", got)
	}
}

func TestGetVersionString(t *testing.T) {
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("unexpected dev version string: %q", got)
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()
	err := &ExitError{Code: 2}
	if err.Error() != "exit status 2" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	wrapped := &ExitError{Code: 1, Err: errors.New("3 of 5 builds failed")}
	if wrapped.Error() != "3 of 5 builds failed" {
		t.Errorf("unexpected message: %q", wrapped.Error())
	}
	if !errors.Is(wrapped, wrapped.Err) {
		t.Error("expected Unwrap to expose the cause")
	}
}
