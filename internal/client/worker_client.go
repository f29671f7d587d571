package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/BitGladiator/image-queue-processor/internal/config"
	"github.com/BitGladiator/image-queue-processor/internal/model"
)

// JobRunner defines the two operations the synchronization core needs from
// the external worker service.
type JobRunner interface {
	CreateJob(ctx context.Context, imagePath, filter string) (string, error)
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
}

// WorkerClient implements JobRunner against the queue producer's HTTP API.
type WorkerClient struct {
	httpClient *http.Client
	baseURL    string
}

// JobInfo is the worker's view of one job.
type JobInfo struct {
	JobID        string
	State        model.WorkerState
	RawState     string
	OutputPath   string
	FailedReason string
}

// jobID tolerates both string and numeric IDs; Bull assigns incrementing
// numeric IDs and the producer echoes them as-is.
type jobID string

func (id *jobID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = jobID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("jobId is neither string nor number: %s", data)
	}
	*id = jobID(n.String())
	return nil
}

type createJobRequest struct {
	ImagePath string `json:"imagePath"`
	Filter    string `json:"filter"`
}

type createJobResponse struct {
	Message string `json:"message"`
	JobID   jobID  `json:"jobId"`
}

type getJobResponse struct {
	JobID        jobID  `json:"jobId"`
	State        string `json:"state"`
	FailedReason string `json:"failedReason,omitempty"`
	Result       *struct {
		OutputPath string `json:"outputPath"`
	} `json:"result,omitempty"`
}

// NewWorkerClient creates a client for the worker service.
func NewWorkerClient(cfg *config.WorkerConfig) *WorkerClient {
	return &WorkerClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// CreateJob submits one processing job and returns the worker-assigned ID.
func (c *WorkerClient) CreateJob(ctx context.Context, imagePath, filter string) (string, error) {
	req := createJobRequest{ImagePath: imagePath, Filter: filter}
	var result createJobResponse
	if err := c.post(ctx, "/add-job", req, &result); err != nil {
		return "", err
	}
	if result.JobID == "" {
		return "", fmt.Errorf("%w: producer returned no jobId", model.ErrWorkerUnavailable)
	}
	return string(result.JobID), nil
}

// GetJob reads the worker's current state for a job.
func (c *WorkerClient) GetJob(ctx context.Context, id string) (*JobInfo, error) {
	endpoint := fmt.Sprintf("/job/%s", id)
	var result getJobResponse
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	info := &JobInfo{
		JobID:        id,
		State:        model.ParseWorkerState(result.State),
		RawState:     result.State,
		FailedReason: result.FailedReason,
	}
	if result.Result != nil {
		info.OutputPath = result.Result.OutputPath
	}
	return info, nil
}

// post sends a POST request with JSON body
func (c *WorkerClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result, false)
}

// get sends a GET request and parses JSON response. A 404 means the resource
// itself is missing, which only the job read path can report.
func (c *WorkerClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result, true)
}

// doRequest executes an HTTP request and parses the response
func (c *WorkerClient) doRequest(req *http.Request, result interface{}, notFoundIsMissing bool) error {
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Worker API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("%w: %v", model.ErrWorkerUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Worker API] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("%w: reading response: %v", model.ErrWorkerUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound && notFoundIsMissing {
		return model.ErrJobNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Worker API] ← %d %s %s — %s", resp.StatusCode, req.Method, req.URL.String(), string(respBody))
		return fmt.Errorf("%w: status %d", model.ErrWorkerUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Printf("[Worker API] ✗ unmarshal error for %s %s: %v (body: %s)", req.Method, req.URL.String(), err, string(respBody))
		return fmt.Errorf("%w: unmarshal response: %v", model.ErrWorkerUnavailable, err)
	}

	return nil
}
