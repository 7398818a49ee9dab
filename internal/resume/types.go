package resume

// Status reflects how far a resume has moved through the extraction pipeline.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusAnalyzing  Status = "analyzing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// statusRank orders statuses so that transitions are monotonic.
// Terminal states share the highest rank and have no outgoing edges.
var statusRank = map[Status]int{
	StatusUploading:  0,
	StatusProcessing: 1,
	StatusAnalyzing:  2,
	StatusCompleted:  3,
	StatusFailed:     3,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is allowed.
// Writing the same status again is permitted so retries stay idempotent.
// Any non-terminal state may fail.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return statusRank[next] == statusRank[s]+1 && next != StatusFailed
}
