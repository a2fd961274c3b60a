// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strconv"
	"strings"
)

// ActionableError is a user-facing error naming what failed, on which
// resource, and how to fix it.
//
//	err := issue.NewErrorContext().
//		WithOperation("load license policy").
//		WithResource("./licenses.json").
//		WithSuggestion("Run 'licensescan policy check ./licenses.json'").
//		Wrap(cause).
//		BuildError()
type ActionableError struct {
	// Operation is a verb phrase such as "load run configuration".
	Operation string
	// Resource is the file, directory or flag involved (optional).
	Resource string
	// Suggestions are remediation hints (optional).
	Suggestions []string
	// Cause is the underlying error (optional).
	Cause error
	// Issue links the error to a catalog entry (optional).
	Issue Id
}

// WrapWithContext wraps err with operation and resource context. A nil err
// returns nil.
func WrapWithContext(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

// Error returns "failed to <operation>: <resource>: <cause>".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message followed by a bullet list of suggestions.
// verbose appends the numbered error chain.
func (e *ActionableError) Format(verbose bool) string {
	lines := []string{e.Error()}
	if len(e.Suggestions) > 0 {
		lines = append(lines, "")
		for _, s := range e.Suggestions {
			lines = append(lines, "  • "+s)
		}
	}
	if verbose && e.Cause != nil {
		lines = append(lines, "", "Error chain:")
		n := 0
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			n++
			lines = append(lines, "  "+strconv.Itoa(n)+". "+err.Error())
		}
	}
	return strings.Join(lines, "\n")
}

// ErrorContext builds an ActionableError incrementally.
type ErrorContext struct {
	ae ActionableError
}

// NewErrorContext creates a new ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WithOperation sets the operation being performed.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.ae.Operation = op
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.ae.Resource = res
	return c
}

// WithSuggestion appends one suggestion.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	return c.WithSuggestions(sug)
}

// WithSuggestions appends several suggestions.
func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.ae.Suggestions = append(c.ae.Suggestions, sugs...)
	return c
}

// WithIssue links the error to a catalog entry.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.ae.Issue = id
	return c
}

// Wrap sets the cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.ae.Cause = err
	return c
}

// Build returns the ActionableError, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.ae.Operation == "" {
		return nil
	}
	ae := c.ae
	ae.Suggestions = append([]string(nil), c.ae.Suggestions...)
	return &ae
}

// BuildError is Build returned as an error, so a missing operation yields
// a nil interface rather than a typed nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
