// internal/service/fraud/http_analyzer.go
package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"paysandbox-service/internal/domain/fraud"
)

// HTTPAnalyzer asks a remote risk service for a score. The request body is
// the fraud.Input JSON; the response must be a fraud.Score JSON object.
type HTTPAnalyzer struct {
	url    string
	client *http.Client
}

func NewHTTPAnalyzer(url string, client *http.Client) *HTTPAnalyzer {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPAnalyzer{url: url, client: client}
}

func (a *HTTPAnalyzer) Score(ctx context.Context, in fraud.Input) (*fraud.Score, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fraud input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("risk service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("risk service returned status %d", resp.StatusCode)
	}

	var score fraud.Score
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&score); err != nil {
		return nil, fmt.Errorf("failed to decode risk response: %w", err)
	}
	return &score, nil
}
