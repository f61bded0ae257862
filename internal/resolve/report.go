package resolve

import "time"

// IssueResult is the outcome for one issue.
type IssueResult struct {
	Key      string
	Fixed    bool
	Attempts int    // candidates tried
	Backend  string // node that produced the fix
	Variant  string // proposal variant that produced the fix
	Diff     string // unified diff of the fix
}

// Report summarizes one SolveIssues run. It is informational only; the
// product of a run is its effect on the target.
type Report struct {
	RunID    string
	Source   string
	Target   string
	Issues   []IssueResult
	Duration time.Duration
}

// Fixed counts fixed issues.
func (r *Report) Fixed() int {
	n := 0
	for _, is := range r.Issues {
		if is.Fixed {
			n++
		}
	}
	return n
}

// Unfixed counts issues left unresolved.
func (r *Report) Unfixed() int { return len(r.Issues) - r.Fixed() }

// Attempts is the total number of candidates tried.
func (r *Report) Attempts() int {
	n := 0
	for _, is := range r.Issues {
		n += is.Attempts
	}
	return n
}
