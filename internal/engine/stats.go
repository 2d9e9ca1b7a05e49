package engine

import (
	"fmt"
	"io"
	"time"
)

// Stats are the counters of one run.
type Stats struct {
	Created   int
	Updated   int
	Deleted   int
	Unchanged int
	Skipped   int
	Filtered  int
	Errors    int

	DirectoryCalls int64
	CRMCalls       int64

	Start    time.Time
	Duration time.Duration
}

func (s *Stats) begin() {
	if s.Start.IsZero() {
		s.Start = time.Now()
	}
}

func (s *Stats) finish() {
	s.Duration = time.Since(s.Start)
}

// Print writes the human-readable run summary.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintf(w, "Run finished in %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  created:   %d\n", s.Created)
	fmt.Fprintf(w, "  updated:   %d\n", s.Updated)
	fmt.Fprintf(w, "  deleted:   %d\n", s.Deleted)
	fmt.Fprintf(w, "  unchanged: %d\n", s.Unchanged)
	fmt.Fprintf(w, "  skipped:   %d\n", s.Skipped)
	if s.Filtered > 0 {
		fmt.Fprintf(w, "  filtered:  %d\n", s.Filtered)
	}
	if s.Errors > 0 {
		fmt.Fprintf(w, "  errors:    %d\n", s.Errors)
	}
	fmt.Fprintf(w, "  api calls: %d directory, %d crm\n", s.DirectoryCalls, s.CRMCalls)
}
