// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/modgate/modgate/internal/issue"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v0.3.0"
		Commit = "abc1234"
		BuildDate = "2026-01-15T10:00:00Z"

		want := "v0.3.0 (commit: abc1234, built: 2026-01-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, testConfig(t), "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "modgate ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, true); got != "plain failure" {
		t.Errorf("formatErrorForDisplay(plain) = %q", got)
	}

	ae := issue.NewErrorContext().
		WithOperation("admit mods").
		WithSuggestion("Check the directory").
		Wrap(errors.New("denied")).
		BuildError()
	got := formatErrorForDisplay(fmt.Errorf("run: %w", ae), false)
	if !strings.Contains(got, "failed to admit mods: denied") || !strings.Contains(got, "Check the directory") {
		t.Errorf("formatErrorForDisplay(actionable) = %q", got)
	}
}

func TestRenderIssue(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	renderIssue(&sb, errors.New("no issue"))
	if sb.Len() != 0 {
		t.Errorf("renderIssue() wrote output for an unlinked error: %q", sb.String())
	}

	err := issue.NewErrorContext().WithOperation("open audit store").WithIssue(issue.AuditStoreFailedId).BuildError()
	renderIssue(&sb, err)
	if !strings.Contains(sb.String(), "audit store") {
		t.Errorf("renderIssue() output = %q", sb.String())
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q", got)
	}
	cause := errors.New("rejected")
	err := &ExitError{Code: 1, Err: cause}
	if !errors.Is(err, cause) || err.Error() != "rejected" {
		t.Errorf("ExitError should wrap its cause")
	}
}
