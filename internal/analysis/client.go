// Package analysis talks to the external AI-analysis collaborator that
// scores submissions. The rest of the system only ever sees
// domain.AnalysisResult; a zero value is a valid neutral fallback when the
// collaborator is unavailable.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/skillforge/skillforge/internal/domain"
)

// Analyzer scores a submission against its mission.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req *Request) (*domain.AnalysisResult, error)
}

// Request is the payload sent to the analysis service.
type Request struct {
	SubmissionID string   `json:"submission_id"`
	MissionID    string   `json:"mission_id"`
	Language     string   `json:"language"`
	Code         string   `json:"code"`
	Concepts     []string `json:"concepts"`
}

// Client is the plain HTTP analysis client. Wrap it in a Resilient
// analyzer for production use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an analysis client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: newAnalysisHTTPClient(),
	}
}

func (c *Client) Name() string {
	return "analysis-http"
}

// Analyze posts the submission for scoring.
func (c *Client) Analyze(ctx context.Context, req *Request) (*domain.AnalysisResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis service returned status %d", resp.StatusCode)
	}

	var result domain.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}

	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("analysis score %d out of range", result.Score)
	}

	return &result, nil
}

// newAnalysisHTTPClient creates an HTTP client tuned for the scoring
// service, which can take a while on large submissions.
func newAnalysisHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		MaxConnsPerHost:       10,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   90 * time.Second,
		Transport: transport,
	}
}
