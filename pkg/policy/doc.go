// SPDX-License-Identifier: MPL-2.0

// Package policy defines the denylist a module must not reference: exact
// dangerous type names, dangerous namespace prefixes, dangerous method simple
// names, and the switch that bans every member of a dangerous type.
//
// A *Policy is immutable once built and safe to share between concurrent
// scans. Hosts customize it by appending to or replacing the defaults, either
// in code through Options or through a policy file (CUE, JSON or YAML).
package policy
