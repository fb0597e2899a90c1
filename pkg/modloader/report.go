// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"time"

	"github.com/modgate/modgate/pkg/scanner"
)

type (
	// Report describes one admission or load run.
	Report struct {
		// RunID identifies the run in logs and the audit trail.
		RunID string
		Dir   string
		// Policy is the fingerprint of the policy the files were scanned with.
		Policy      string
		Files       []*FileReport
		Diagnostics []Diagnostic
	}

	// FileReport is the outcome for one candidate file.
	FileReport struct {
		Path    string
		SHA256  string
		Module  string
		Verdict scanner.Verdict
		// CapabilityTypes lists the types selected for instantiation.
		CapabilityTypes []string
		// Mods lists the instances registered from this file (Load only).
		Mods     []Descriptor
		Failures []error
		Duration time.Duration
	}
)

// Accepted returns the files whose scan passed.
func (r *Report) Accepted() []*FileReport {
	return r.filter(true)
}

// Rejected returns the files whose scan failed, unreadable files included.
func (r *Report) Rejected() []*FileReport {
	return r.filter(false)
}

// ModCount returns the number of mods registered during the run.
func (r *Report) ModCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Mods)
	}
	return n
}

func (r *Report) filter(accepted bool) []*FileReport {
	var out []*FileReport
	for _, f := range r.Files {
		if f.Verdict.Accepted == accepted {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) addDiagnostic(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}
