// SPDX-License-Identifier: MPL-2.0

package scanner

import "fmt"

// Verdict is the outcome of a scan. Reasons is empty when Accepted.
type Verdict struct {
	Accepted bool
	Reasons  []string
	// Cause is set when the module could not be read at all.
	Cause error
}

func accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(reason string) Verdict {
	return Verdict{Reasons: []string{reason}}
}

// Unreadable returns the rejection verdict for a module whose metadata could
// not be produced.
func Unreadable(cause error) Verdict {
	return Verdict{
		Reasons: []string{fmt.Sprintf("unreadable module: %v", cause)},
		Cause:   cause,
	}
}

// Unreadable reports whether the module was rejected because its metadata
// could not be produced.
func (v Verdict) Unreadable() bool {
	return v.Cause != nil
}

// FirstReason returns the first rejection reason, or "" when accepted.
func (v Verdict) FirstReason() string {
	if len(v.Reasons) == 0 {
		return ""
	}
	return v.Reasons[0]
}

// String implements fmt.Stringer.
func (v Verdict) String() string {
	if v.Accepted {
		return "accepted"
	}
	return "rejected: " + v.FirstReason()
}
