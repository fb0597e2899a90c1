// SPDX-License-Identifier: MPL-2.0

// Package testutil provides Must* helpers that fail the test on error and
// fixtures for writing module images to disk.
package testutil
