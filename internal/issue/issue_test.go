// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != len(issues) {
		t.Fatalf("Values() returned %d entries, want %d", len(values), len(issues))
	}
	for i, v := range values {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, v.Id(), i+1)
		}
		if strings.TrimSpace(string(v.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", v.Id())
		}
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	if Get(PolicyInvalidId) != policyInvalidIssue {
		t.Error("Get(PolicyInvalidId) returned the wrong entry")
	}
	if Get(Id(0)) != nil || Get(Id(999)) != nil {
		t.Error("Get should return nil for unknown ids")
	}
}

func TestIssue_DocLinksAreCopied(t *testing.T) {
	t.Parallel()

	i := &Issue{id: 1, docLinks: []HttpLink{"https://example.com/a"}}
	links := i.DocLinks()
	links[0] = "changed"
	if i.DocLinks()[0] != "https://example.com/a" {
		t.Error("DocLinks should return a copy")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	t.Parallel()

	for _, i := range Values() {
		out, err := i.Render("notty")
		if err != nil {
			t.Errorf("issue %d: Render: %v", i.Id(), err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("issue %d rendered empty", i.Id())
		}
	}
}

func TestIssue_RenderLinks(t *testing.T) {
	t.Parallel()

	i := &Issue{id: 1, mdMsg: "# Title", docLinks: []HttpLink{"https://example.com/docs"}}
	out, err := i.Render("notty")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "See also") || !strings.Contains(out, "https://example.com/docs") {
		t.Errorf("Render output missing links:\n%s", out)
	}
}
