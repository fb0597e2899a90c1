// SPDX-License-Identifier: MPL-2.0

// Package issue renders user-facing failures for the modgate CLI.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. The issue catalog holds longer Markdown guidance that
// the CLI renders with glamour when a run ends in a known failure mode.
package issue
