package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ScanStatus is the verdict recorded for a completed scan attempt.
type ScanStatus string

const (
	StatusClean          ScanStatus = "clean"
	StatusThreatDetected ScanStatus = "threat_detected"
	StatusScanFailed     ScanStatus = "scan_failed"
)

// CleanDetails is the details text recorded for a clean verdict.
const CleanDetails = "The file is clean."

// ScanRecord represents one completed scan outcome in the history.
type ScanRecord struct {
	FileName  string     `json:"file_name"`
	Status    ScanStatus `json:"status"`
	Details   string     `json:"details"`
	Timestamp time.Time  `json:"timestamp"`
	FileHash  string     `json:"file_hash"`
}

// NewScanRecord builds a record stamped with the current UTC time.
// Timestamps are truncated to the second so records survive an
// encode/decode round trip unchanged.
func NewScanRecord(fileName string, status ScanStatus, details, fileHash string) ScanRecord {
	return ScanRecord{
		FileName:  fileName,
		Status:    status,
		Details:   details,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		FileHash:  fileHash,
	}
}

var hexPattern = regexp.MustCompile("^[a-fA-F0-9]+$")

// Validate checks the record invariants. A scan_failed record may carry an
// empty hash (hashing itself failed); any other status requires a valid digest.
func (r *ScanRecord) Validate() error {
	if r.FileName == "" {
		return errors.New("file name must not be empty")
	}
	switch r.Status {
	case StatusClean, StatusThreatDetected, StatusScanFailed:
	default:
		return fmt.Errorf("unknown status: %q", r.Status)
	}
	if r.FileHash == "" {
		if r.Status != StatusScanFailed {
			return errors.New("file hash required unless the scan failed")
		}
		return nil
	}
	if !hexPattern.MatchString(r.FileHash) {
		return errors.New("file hash must contain only hexadecimal characters")
	}
	return nil
}

// Verdict is the transient result of a remote report query.
type Verdict struct {
	Positives int `json:"positives"`
	Total     int `json:"total"`
}

// Status derives the record status: any positive detection is a threat.
func (v Verdict) Status() ScanStatus {
	if v.Positives > 0 {
		return StatusThreatDetected
	}
	return StatusClean
}

// Summary renders the human-readable details for the verdict.
func (v Verdict) Summary() string {
	if v.Positives > 0 {
		return fmt.Sprintf("%d/%d detections", v.Positives, v.Total)
	}
	return CleanDetails
}

// HistoryResponse includes pagination metadata.
type HistoryResponse struct {
	Records    []ScanRecord `json:"records"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	Total      int          `json:"total"`
	TotalPages int          `json:"total_pages"`
}

// StatsResponse represents the structure of the /stats API response.
type StatsResponse struct {
	TotalScans      int       `json:"total_scans"`
	ThreatsDetected int       `json:"threats_detected"`
	ScansFailed     int       `json:"scans_failed"`
	LastScanAt      time.Time `json:"last_scan_at"`
}
