package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const apiVersion = "openapi/v1"

// MeshyOptions controls how the Meshy client is configured.
type MeshyOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// MeshyClient talks to the Meshy image-to-3D API.
type MeshyClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewMeshyClient(opts MeshyOptions) *MeshyClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.meshy.ai"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &MeshyClient{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

type meshySubmitRequest struct {
	ImageURL        string `json:"image_url"`
	ModelType       string `json:"model_type"`
	AIModel         string `json:"ai_model"`
	Topology        string `json:"topology"`
	SymmetryMode    string `json:"symmetry_mode"`
	ShouldTexture   bool   `json:"should_texture"`
	TargetPolycount int    `json:"target_polycount,omitempty"`
	EnablePBR       bool   `json:"enable_pbr,omitempty"`
}

type meshySubmitResponse struct {
	Result  string `json:"result"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

type meshyTaskResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Progress  int               `json:"progress"`
	ModelURLs map[string]string `json:"model_urls"`
	Thumbnail string            `json:"thumbnail_url"`
	TaskError *struct {
		Message string `json:"message"`
	} `json:"task_error"`
	Message string `json:"message"`
}

// Submit creates an image-to-3D task and returns its id for polling.
func (c *MeshyClient) Submit(ctx context.Context, imageDataURI string, opts Options) (string, error) {
	if c == nil {
		return "", errors.New("meshy: client not configured")
	}
	if c.token == "" {
		return "", errors.New("meshy: API key is missing")
	}
	if strings.TrimSpace(imageDataURI) == "" {
		return "", errors.New("meshy: image reference required")
	}
	payload := meshySubmitRequest{
		ImageURL:        imageDataURI,
		ModelType:       opts.ModelType,
		AIModel:         opts.AIModel,
		Topology:        opts.Topology,
		SymmetryMode:    opts.SymmetryMode,
		ShouldTexture:   opts.ShouldTexture,
		TargetPolycount: opts.TargetPolycount,
		EnablePBR:       opts.EnablePBR,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/%s/image-to-3d", c.baseURL, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("meshy: submit: %w", err)
	}
	defer resp.Body.Close()

	// Meshy returns 200 or 202 on successful task creation.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{
			Message:    "failed to create task: " + strings.TrimSpace(string(text)),
			StatusCode: resp.StatusCode,
		}
	}
	var out meshySubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("meshy: decode submit response: %w", err)
	}
	taskID := out.Result
	if taskID == "" {
		taskID = out.ID
	}
	if taskID == "" {
		return "", &APIError{Message: "no task id in response"}
	}
	return taskID, nil
}

// Poll fetches the current state of a task.
func (c *MeshyClient) Poll(ctx context.Context, taskID string) (*Task, error) {
	if c == nil {
		return nil, errors.New("meshy: client not configured")
	}
	endpoint := fmt.Sprintf("%s/%s/image-to-3d/%s", c.baseURL, apiVersion, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meshy: poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			Message:    "failed to get task status: " + strings.TrimSpace(string(text)),
			StatusCode: resp.StatusCode,
		}
	}
	var out meshyTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("meshy: decode task response: %w", err)
	}

	status := TaskStatus(strings.ToUpper(out.Status))
	switch status {
	case TaskPending, TaskInProgress, TaskSucceeded, TaskFailed, TaskExpired:
	default:
		status = TaskPending
	}
	diagnostic := out.Message
	if out.TaskError != nil && out.TaskError.Message != "" {
		diagnostic = out.TaskError.Message
	}
	return &Task{
		ID:           taskID,
		Status:       status,
		Progress:     out.Progress,
		ModelURLs:    out.ModelURLs,
		ThumbnailURL: out.Thumbnail,
		Diagnostic:   diagnostic,
	}, nil
}

// Download fetches an artifact URL into destDir and returns the local path.
// The filename is unique so concurrent downloads never collide; the caller
// relocates the file under the job's namespace afterwards.
func (c *MeshyClient) Download(ctx context.Context, url, destDir, format string) (string, error) {
	if c == nil {
		return "", errors.New("meshy: client not configured")
	}
	if strings.TrimSpace(url) == "" {
		return "", errors.New("meshy: artifact url required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("meshy: ensure download directory: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("meshy: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Message: "failed to download artifact", StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("meshy: read artifact: %w", err)
	}
	path := filepath.Join(destDir, fmt.Sprintf("mesh-%s.%s", uuid.NewString()[:8], format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("meshy: write artifact: %w", err)
	}
	return path, nil
}

var _ Client = (*MeshyClient)(nil)
