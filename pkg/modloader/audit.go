// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"context"
	"time"
)

type (
	// AuditEntry records one scan verdict.
	AuditEntry struct {
		RunID string
		Path  string
		// SHA256 is the digest of the bytes the reader consumed.
		SHA256            string
		Module            string
		PolicyFingerprint string
		Accepted          bool
		Unreadable        bool
		Reasons           []string
		ScannedAt         time.Time
	}

	// Auditor persists scan verdicts. Record is called from a single goroutine.
	Auditor interface {
		Record(ctx context.Context, e AuditEntry) error
	}
)
