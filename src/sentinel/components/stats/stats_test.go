package stats

import (
	"testing"
	"time"

	"github.com/stake-plus/sentinel/src/sentinel/registry"
)

type fakeMembers struct {
	members []Member
}

func (f *fakeMembers) ListMembers() ([]Member, error) {
	return f.members, nil
}

func TestInactiveCount(t *testing.T) {
	reg := registry.New()
	now := time.Now()

	members := &fakeMembers{members: []Member{
		{ID: "active"},
		{ID: "stale"},
		{ID: "silent"},
		{ID: "robot", Bot: true},
	}}

	reg.TouchActivity("active", now.Add(-time.Hour))
	reg.TouchActivity("stale", now.Add(-40*24*time.Hour))
	// "silent" has no activity at all; "robot" is a bot and never counts.

	s := New(Config{Registry: reg, Members: members})

	inactive, err := s.InactiveCount(now)
	if err != nil {
		t.Fatalf("inactive count: %v", err)
	}
	if inactive != 2 {
		t.Fatalf("inactive = %d, want 2 (stale + silent)", inactive)
	}
}

func TestInactiveMonotonicAsTimeAdvances(t *testing.T) {
	reg := registry.New()
	now := time.Now()

	members := &fakeMembers{members: []Member{
		{ID: "u1"}, {ID: "u2"}, {ID: "u3"},
	}}
	reg.TouchActivity("u1", now.Add(-10*24*time.Hour))
	reg.TouchActivity("u2", now.Add(-25*24*time.Hour))
	reg.TouchActivity("u3", now.Add(-45*24*time.Hour))

	s := New(Config{Registry: reg, Members: members})

	// With a fixed member set and no new messages, advancing the clock
	// can only grow the inactive count.
	prev := -1
	for _, offset := range []time.Duration{0, 10 * 24 * time.Hour, 30 * 24 * time.Hour, 60 * 24 * time.Hour} {
		inactive, err := s.InactiveCount(now.Add(offset))
		if err != nil {
			t.Fatalf("inactive count: %v", err)
		}
		if inactive < prev {
			t.Fatalf("inactive count decreased from %d to %d", prev, inactive)
		}
		prev = inactive
	}
	if prev != 3 {
		t.Fatalf("final inactive = %d, want all 3", prev)
	}
}

func TestReportSnapshotsCounters(t *testing.T) {
	reg := registry.New()
	reg.AddJoined()
	reg.AddPassed()

	s := New(Config{Registry: reg, Members: &fakeMembers{}})

	report, err := s.Report(time.Now())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Counters.Joined != 1 || report.Counters.Passed != 1 {
		t.Fatalf("counters = %+v", report.Counters)
	}
	if report.Inactive != 0 {
		t.Fatalf("inactive = %d, want 0 for empty member list", report.Inactive)
	}
}
