// SPDX-License-Identifier: MPL-2.0

// Package executortest provides a scripted executor.Runner for tests of
// packages that shell out.
package executortest

import (
	"context"
	"strings"
	"sync"

	"github.com/connectedyard/licensescan/internal/executor"
)

type (
	// Invocation records one call to Fake.Run.
	Invocation struct {
		Name string
		Args []string
		Opts executor.Options
	}

	// Fake is an executor.Runner that returns canned results keyed by command
	// line. Commands without a scripted result succeed with empty output.
	Fake struct {
		mu          sync.Mutex
		results     map[string]*executor.Result
		hooks       map[string]func()
		Invocations []Invocation
	}
)

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		results: make(map[string]*executor.Result),
		hooks:   make(map[string]func()),
	}
}

// On scripts the result for a command line such as "git rev-parse HEAD".
func (f *Fake) On(commandLine string, result executor.Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := result
	f.results[commandLine] = &r
	return f
}

// Do registers fn to run when commandLine is invoked, before its result is
// returned. Tests use it to simulate side effects such as npm creating
// node_modules.
func (f *Fake) Do(commandLine string, fn func()) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[commandLine] = fn
	return f
}

// Run implements executor.Runner.
func (f *Fake) Run(_ context.Context, name string, args []string, opts executor.Options) *executor.Result {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	f.Invocations = append(f.Invocations, Invocation{Name: name, Args: args, Opts: opts})
	scripted := f.results[line]
	hook := f.hooks[line]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	result := executor.Result{}
	if scripted != nil {
		result = *scripted
	}
	result.CommandLine = executor.CommandLine(name, args)
	return &result
}

// Lines returns the invoked command lines in order.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Invocations))
	for _, inv := range f.Invocations {
		lines = append(lines, strings.Join(append([]string{inv.Name}, inv.Args...), " "))
	}
	return lines
}
