// SPDX-License-Identifier: MPL-2.0

package modloader

const (
	// SeverityWarning indicates a skipped file or type.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal failure worth operator attention.
	SeverityError Severity = "error"
)

// Diagnostic codes.
const (
	CodeModuleUnreadable    = "module_unreadable"
	CodePolicyViolation     = "policy_violation"
	CodeContractUnsatisfied = "contract_unsatisfied"
	CodeInstantiationFailed = "instantiation_failed"
	CodeDuplicateIdentifier = "duplicate_identifier"
	CodeAuditFailed         = "audit_failed"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a structured, non-fatal loader event returned to callers
	// for rendering.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "policy_violation").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the module file the diagnostic concerns.
		Path string
		// Cause is the underlying error, if any.
		Cause error
	}
)
