// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates JSON or CUE documents against an embedded CUE
// schema and decodes them into Go values.
//
//	//go:embed policy_schema.cue
//	var policySchema []byte
//
//	result, err := cueutil.ParseAndDecode[document](policySchema, data, "#Policy",
//	    cueutil.WithFilename(path))
package cueutil

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult holds a decoded document and the unified CUE value it came
// from, for callers that need information the Go value loses (field order).
type ParseResult[T any] struct {
	Value   *T
	Unified cue.Value
}

// ParseAndDecode compiles schema, unifies data with the definition at
// schemaPath, validates the result and decodes it into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, root.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	// Decode through JSON so types implementing json.Unmarshaler are honored.
	encoded, err := unified.MarshalJSON()
	if err != nil {
		return nil, FormatError(err, filename)
	}
	var result T
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}

// FieldNames returns the regular field labels of the struct at path, in the
// order they appear in the document. A missing path yields no names.
func FieldNames(v cue.Value, path string) ([]string, error) {
	target := v.LookupPath(cue.ParsePath(path))
	if !target.Exists() {
		return nil, nil
	}
	iter, err := target.Fields()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var names []string
	for iter.Next() {
		names = append(names, iter.Selector().Unquoted())
	}
	return names, nil
}

// CheckFileSize rejects documents larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
