package stats

import (
	"fmt"
	"time"

	"github.com/stake-plus/sentinel/src/sentinel/registry"
)

const DefaultInactiveAfter = 30 * 24 * time.Hour

// Member is the slim member view needed for the inactivity scan.
type Member struct {
	ID  string
	Bot bool
}

// MemberLister enumerates the guild's current members.
type MemberLister interface {
	ListMembers() ([]Member, error)
}

// Report is a point-in-time view of the counters plus the derived
// inactive count.
type Report struct {
	Counters registry.Counters `json:"counters"`
	Inactive int               `json:"inactive"`
}

type Config struct {
	Registry      *registry.Registry
	Members       MemberLister
	InactiveAfter time.Duration
}

// Stats serves counter snapshots and computes inactivity on demand.
// Inactivity is an O(member count) scan at query time; membership and
// activity both churn constantly, so an eagerly maintained set would
// need re-evaluation every tick for nothing.
type Stats struct {
	config Config
}

func New(config Config) *Stats {
	if config.InactiveAfter == 0 {
		config.InactiveAfter = DefaultInactiveAfter
	}
	return &Stats{config: config}
}

// Report snapshots the counters and recomputes the inactive count as of
// now.
func (s *Stats) Report(now time.Time) (Report, error) {
	inactive, err := s.InactiveCount(now)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Counters: s.config.Registry.Counters(),
		Inactive: inactive,
	}, nil
}

// InactiveCount counts non-bot members with no recorded activity or
// whose last message predates the threshold.
func (s *Stats) InactiveCount(now time.Time) (int, error) {
	members, err := s.config.Members.ListMembers()
	if err != nil {
		return 0, fmt.Errorf("list members: %w", err)
	}

	cutoff := now.Add(-s.config.InactiveAfter)
	inactive := 0
	for _, m := range members {
		if m.Bot {
			continue
		}
		last, ok := s.config.Registry.LastActivity(m.ID)
		if !ok || last.Before(cutoff) {
			inactive++
		}
	}
	return inactive, nil
}
