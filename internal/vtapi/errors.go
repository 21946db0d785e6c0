package vtapi

import (
	"errors"
	"fmt"
)

// ErrRateLimited reports that the reputation service signalled throttling
// (HTTP 204 on the v2 report endpoint).
var ErrRateLimited = errors.New("VirusTotal API rate limit exceeded")

// SubmissionError reports a non-success status from the file submission endpoint.
type SubmissionError struct {
	StatusCode int
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("file submission failed with status %d", e.StatusCode)
}

// NotFoundError reports that the service does not know the resource yet,
// either never submitted or still queued for analysis.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %s not found in VirusTotal database", e.Resource)
}

// ProtocolError reports any other non-success status from the report endpoint.
type ProtocolError struct {
	StatusCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("VirusTotal API returned status %d", e.StatusCode)
}
