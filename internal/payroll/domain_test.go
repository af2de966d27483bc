package payroll

import (
	"testing"

	"github.com/gajiflow/gajiflow/internal/permissions"
)

func TestNextStatusWalksTheFullChain(t *testing.T) {
	status := StatusDraft
	var walked []Status
	for {
		next, ok := NextStatus(status)
		if !ok {
			break
		}
		walked = append(walked, next)
		status = next
	}
	if len(walked) != 3 {
		t.Fatalf("expected 3 hops from draft, got %d (%v)", len(walked), walked)
	}
	if walked[0] != StatusReview || walked[1] != StatusApproved || walked[2] != StatusPublished {
		t.Fatalf("wrong chain: %v", walked)
	}
}

func TestNextStatusTerminalAndUnknown(t *testing.T) {
	if _, ok := NextStatus(StatusPublished); ok {
		t.Fatalf("published must have no successor")
	}
	if _, ok := NextStatus(Status("archived")); ok {
		t.Fatalf("unknown status must have no successor")
	}
}

func TestRequiredCapabilitiesPerStatus(t *testing.T) {
	cases := []struct {
		from Status
		want []permissions.Capability
	}{
		{StatusDraft, []permissions.Capability{permissions.CapabilityCreate, permissions.CapabilityEdit}},
		{StatusReview, []permissions.Capability{permissions.CapabilityApprove}},
		{StatusApproved, []permissions.Capability{permissions.CapabilityPublish}},
		{StatusPublished, nil},
	}
	for _, tc := range cases {
		got := RequiredCapabilities(tc.from)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.from, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: expected %v, got %v", tc.from, tc.want, got)
			}
		}
	}
}

func TestNormalizePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2026-01", "2026-01"},
		{"  2026-01  ", "2026-01"},
		{"January 2026", "january 2026"},
		{"January   2026", "january 2026"},
		{"JANUARY 2026", "january 2026"},
	}
	for _, tc := range cases {
		if got := NormalizePeriod(tc.in); got != tc.want {
			t.Fatalf("NormalizePeriod(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePeriodCollisions(t *testing.T) {
	if NormalizePeriod("January 2026") != NormalizePeriod(" JANUARY   2026 ") {
		t.Fatalf("case and whitespace variants must collide")
	}
	if NormalizePeriod("2026-01") == NormalizePeriod("2026-02") {
		t.Fatalf("distinct periods must not collide")
	}
}
