package mesh

import (
	"context"
	"errors"
	"fmt"
)

// TaskStatus enumerates backend task states.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskSucceeded  TaskStatus = "SUCCEEDED"
	TaskFailed     TaskStatus = "FAILED"
	TaskExpired    TaskStatus = "EXPIRED"
)

// Task is one poll observation of an image-to-3D task.
type Task struct {
	ID           string
	Status       TaskStatus
	Progress     int
	ModelURLs    map[string]string // format -> download URL
	ThumbnailURL string
	Diagnostic   string // backend-supplied failure detail, if any
}

// Succeeded reports a completed task with artifacts available.
func (t *Task) Succeeded() bool { return t.Status == TaskSucceeded }

// Failed reports a terminally failed task. Expired tasks count as failed.
func (t *Task) Failed() bool { return t.Status == TaskFailed || t.Status == TaskExpired }

// Client is the contract for an asynchronous image-to-3D backend. The caller
// owns the poll loop and its timeout; the client only performs single calls.
type Client interface {
	Submit(ctx context.Context, imageDataURI string, opts Options) (string, error)
	Poll(ctx context.Context, taskID string) (*Task, error)
	Download(ctx context.Context, url, destDir, format string) (string, error)
}

// ErrPollTimeout marks a poll loop that exceeded its total wait. Kept distinct
// from APIError so diagnostics can tell a slow backend from a broken one.
var ErrPollTimeout = errors.New("mesh generation timed out")

// APIError is an error response from the mesh backend.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (http %d)", e.Message, e.StatusCode)
	}
	return e.Message
}
