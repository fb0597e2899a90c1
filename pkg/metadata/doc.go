// SPDX-License-Identifier: MPL-2.0

// Package metadata models the structural metadata of a compiled extension
// module: the types it declares, their members and signatures, and the typed
// operands of every method's instruction stream.
//
// A Module graph is produced by a Reader and consumed read-only by the scanner.
// Nothing in this package executes module code. The bundled ImageReader decodes
// module images, which are CUE (or JSON) dumps of that metadata validated
// against an embedded schema.
package metadata
