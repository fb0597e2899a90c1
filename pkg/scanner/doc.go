// SPDX-License-Identifier: MPL-2.0

// Package scanner decides whether a module may be loaded. It walks every type
// the module declares, classifies each referenced type against a
// policy.Policy, and returns a Verdict.
//
// The scan inspects structural metadata and literal instruction operands only.
// It stops at the first violation, and any module whose metadata cannot be
// produced is rejected.
package scanner
