// Package pipeline sequences harvesting, extraction, structuring and
// persistence of directory candidates, one candidate at a time.
package pipeline

import (
	"fmt"
	"strings"
)

// State is where a candidate stopped in the pipeline.
type State string

const (
	StateFetched    State = "fetched"
	StateClassified State = "classified"
	StateGenerated  State = "generated"
	StateNormalized State = "normalized"
	StatePersisted  State = "persisted"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

// Outcome is the terminal label recorded in the run log and metrics.
type Outcome string

const (
	OutcomePersisted Outcome = "Persisted"
	OutcomeDryRun    Outcome = "Persisted (dry-run)"
	OutcomeDuplicate Outcome = "Duplicate"
	OutcomeSkipped   Outcome = "Skipped"
	OutcomeFailed    Outcome = "Failed"
)

const (
	ReasonFetch         = "fetch"
	ReasonNotRelevant   = "not relevant"
	ReasonDuplicate     = "duplicate"
	ReasonGeneration    = "generation"
	ReasonNormalization = "normalization"
	ReasonOwner         = "owner"
	ReasonSlug          = "slug"
	ReasonPersistence   = "persistence"
)

// Result is the record of one processed candidate.
type Result struct {
	URL      string
	State    State
	Outcome  Outcome
	Reason   string
	ToolName string
	Slug     string
	DryRun   bool
	Err      error
}

// Succeeded reports whether the candidate was persisted, for real or not.
func (r Result) Succeeded() bool {
	return r.State == StatePersisted
}

func (r Result) String() string {
	var b strings.Builder
	b.WriteString(string(r.Outcome))
	if r.Reason != "" {
		fmt.Fprintf(&b, ": %s", r.Reason)
	}
	fmt.Fprintf(&b, " (%s)", r.URL)
	if r.Slug != "" {
		fmt.Fprintf(&b, " slug=%s", r.Slug)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, " error=%v", r.Err)
	}
	return b.String()
}

// Summary aggregates a run. Duplicates are a subset of Skipped.
type Summary struct {
	Processed  int
	Succeeded  int
	Skipped    int
	Failed     int
	Duplicates int
	Results    []Result
}

// Add counts r and keeps it in discovery order.
func (s *Summary) Add(r Result) {
	s.Processed++
	switch r.State {
	case StatePersisted:
		s.Succeeded++
	case StateSkipped:
		s.Skipped++
		if r.Outcome == OutcomeDuplicate {
			s.Duplicates++
		}
	default:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "processed=%d succeeded=%d skipped=%d duplicates=%d failed=%d",
		s.Processed, s.Succeeded, s.Skipped, s.Duplicates, s.Failed)
	for _, r := range s.Results {
		b.WriteString("\n  - ")
		b.WriteString(r.String())
	}
	return b.String()
}
