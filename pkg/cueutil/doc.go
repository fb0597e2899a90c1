// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared CUE decoding flow used for module images,
// policy files and the host configuration.
//
// Every document goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with the schema definition
//  3. Validate and decode into a Go struct
//
// # Usage
//
//	//go:embed image_schema.cue
//	var imageSchema []byte
//
//	result, err := cueutil.ParseAndDecode[imageDoc](
//	    imageSchema,
//	    data,
//	    "#Module",
//	    cueutil.WithFilename("weather.modimg"),
//	)
//	if err != nil {
//	    return nil, err // includes the CUE path of the offending value
//	}
//
// JSON is valid CUE, so the same flow accepts JSON documents.
package cueutil
