package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestScanRecordRoundTrip(t *testing.T) {
	record := NewScanRecord("sample.exe", StatusThreatDetected, "3/68 detections", "abc123def456")

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("failed to marshal record: %v", err)
	}

	var decoded ScanRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal record: %v", err)
	}

	if decoded.FileName != record.FileName {
		t.Errorf("file name mismatch: %s", decoded.FileName)
	}
	if decoded.Status != record.Status {
		t.Errorf("status mismatch: %s", decoded.Status)
	}
	if decoded.Details != record.Details {
		t.Errorf("details mismatch: %s", decoded.Details)
	}
	if decoded.FileHash != record.FileHash {
		t.Errorf("file hash mismatch: %s", decoded.FileHash)
	}
	if !decoded.Timestamp.Equal(record.Timestamp) {
		t.Errorf("timestamp mismatch: %v != %v", decoded.Timestamp, record.Timestamp)
	}
}

func TestNewScanRecordTimestampPrecision(t *testing.T) {
	record := NewScanRecord("sample.exe", StatusClean, CleanDetails, "abc123")
	if record.Timestamp.Nanosecond() != 0 {
		t.Errorf("timestamp should be truncated to the second, got %v", record.Timestamp)
	}
	if record.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp should be UTC, got %v", record.Timestamp.Location())
	}
}

func TestVerdictStatus(t *testing.T) {
	tests := []struct {
		verdict Verdict
		status  ScanStatus
		summary string
	}{
		{Verdict{Positives: 0, Total: 70}, StatusClean, "The file is clean."},
		{Verdict{Positives: 3, Total: 68}, StatusThreatDetected, "3/68 detections"},
		{Verdict{Positives: 1, Total: 1}, StatusThreatDetected, "1/1 detections"},
	}

	for _, tt := range tests {
		if got := tt.verdict.Status(); got != tt.status {
			t.Errorf("Verdict%+v.Status() = %s, want %s", tt.verdict, got, tt.status)
		}
		if got := tt.verdict.Summary(); got != tt.summary {
			t.Errorf("Verdict%+v.Summary() = %q, want %q", tt.verdict, got, tt.summary)
		}
	}
}

func TestScanRecordValidate(t *testing.T) {
	valid := NewScanRecord("a.exe", StatusClean, CleanDetails, "deadbeef")
	if err := valid.Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}

	failed := NewScanRecord("a.exe", StatusScanFailed, "could not read file", "")
	if err := failed.Validate(); err != nil {
		t.Errorf("failed record with empty hash rejected: %v", err)
	}

	noHash := NewScanRecord("a.exe", StatusClean, CleanDetails, "")
	if err := noHash.Validate(); err == nil {
		t.Error("clean record with empty hash should be rejected")
	}

	noName := NewScanRecord("", StatusClean, CleanDetails, "deadbeef")
	if err := noName.Validate(); err == nil {
		t.Error("record without file name should be rejected")
	}

	badHash := NewScanRecord("a.exe", StatusClean, CleanDetails, "not-hex!")
	if err := badHash.Validate(); err == nil {
		t.Error("record with non-hex hash should be rejected")
	}
}
