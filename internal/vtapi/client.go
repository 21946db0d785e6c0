// Package vtapi is the protocol adapter for the VirusTotal v2 file API.
// Submission and report retrieval are independent round trips: submission
// enqueues analysis server-side, and a report only becomes retrievable once
// the service has finished processing.
package vtapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vtsentry/vtsentry/internal/storage/models"
)

// DefaultBaseURL is the production VirusTotal endpoint.
const DefaultBaseURL = "https://www.virustotal.com"

// RateLimiter wraps a token-bucket limiter applied before each API call.
type RateLimiter struct {
	Limiter *rate.Limiter
	Burst   int
	Rate    rate.Limit // Requests per second
}

// Client talks to the VirusTotal v2 API. The credential is passed
// explicitly on each call; no local state is retained between calls.
type Client struct {
	BaseURL     string
	Client      *http.Client
	RateLimiter *RateLimiter
}

// NewClient initializes a Client against baseURL (DefaultBaseURL if empty).
// The transport timeout is generous because Submit uploads file content.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// SetRateLimiter sets the rate limiter for the client.
func (c *Client) SetRateLimiter(limiter *RateLimiter) {
	c.RateLimiter = limiter
}

func (c *Client) wait(ctx context.Context) error {
	if c.RateLimiter == nil {
		return nil
	}
	if err := c.RateLimiter.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %v", err)
	}
	return nil
}

type submitResponse struct {
	ScanID string `json:"scan_id"`
}

type reportResponse struct {
	ResponseCode int `json:"response_code"`
	Positives    int `json:"positives"`
	Total        int `json:"total"`
}

// Submit uploads the file at filePath for analysis and returns the scan id
// assigned by the service. Any non-200 status is a *SubmissionError.
func (c *Client) Submit(ctx context.Context, filePath, apiKey string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file for submission: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("apikey", apiKey); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read file for submission: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := c.BaseURL + "/vtapi/v2/file/scan"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	logrus.WithField("status", resp.StatusCode).Debug("VirusTotal scan submission response")
	if resp.StatusCode != http.StatusOK {
		return "", &SubmissionError{StatusCode: resp.StatusCode}
	}

	var submitResp submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", fmt.Errorf("failed to decode submission response: %w", err)
	}
	return submitResp.ScanID, nil
}

// FetchReport retrieves the analysis report for hash. The service reports
// "unknown or not yet analyzed" with response_code 0 (*NotFoundError),
// throttling with HTTP 204 (ErrRateLimited), and anything else non-200 is
// a *ProtocolError.
func (c *Client) FetchReport(ctx context.Context, hash, apiKey string) (models.Verdict, error) {
	if err := c.wait(ctx); err != nil {
		return models.Verdict{}, err
	}

	params := url.Values{}
	params.Set("apikey", apiKey)
	params.Set("resource", hash)
	endpoint := c.BaseURL + "/vtapi/v2/file/report?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Verdict{}, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return models.Verdict{}, err
	}
	defer resp.Body.Close()

	logrus.WithField("status", resp.StatusCode).Debug("VirusTotal report response")
	switch resp.StatusCode {
	case http.StatusOK:
		var report reportResponse
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return models.Verdict{}, fmt.Errorf("failed to decode report response: %w", err)
		}
		if report.ResponseCode == 0 {
			return models.Verdict{}, &NotFoundError{Resource: hash}
		}
		return models.Verdict{Positives: report.Positives, Total: report.Total}, nil
	case http.StatusNoContent:
		return models.Verdict{}, ErrRateLimited
	default:
		return models.Verdict{}, &ProtocolError{StatusCode: resp.StatusCode}
	}
}
