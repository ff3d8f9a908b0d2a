// Package recognizer invokes the external face-recognition and
// handwriting-comparison scripts. The processes own all recognition
// policy; this client only speaks their argv/stdout contract: structured
// arguments in (operation first, bearer token last), one JSON document on
// stdout with a success flag. Anything else is an external-process error.
package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"time"

	"portal/internal/portal"
)

// Result is the attendance/registration response from the face script.
type Result struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Subject string           `json:"subject,omitempty"`
	Data    []map[string]any `json:"data"`
}

// CompareResult is the handwriting-comparison response.
type CompareResult struct {
	Success    bool    `json:"success"`
	Similarity float64 `json:"similarity"`
	Match      bool    `json:"match"`
	Message    string  `json:"message"`
}

// runFunc executes one external command and returns stdout, stderr.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Client runs the external scripts with a fixed timeout, no retries.
type Client struct {
	PythonBin string
	ModelDir  string
	Timeout   time.Duration
	Skip      bool

	run runFunc
}

// New creates a client. With skip set, canned results are returned so the
// portal runs without the model installed.
func New(pythonBin, modelDir string, timeout time.Duration, skip bool) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		PythonBin: pythonBin,
		ModelDir:  modelDir,
		Timeout:   timeout,
		Skip:      skip,
		run:       execRun,
	}
}

// TakeAttendance runs the face script over a captured class image and
// returns the recognized-student rows.
func (c *Client) TakeAttendance(ctx context.Context, subject, imagePath, token string) (*Result, error) {
	if c.Skip {
		return &Result{
			Success: true,
			Message: "attendance recorded (mock)",
			Subject: subject,
			Data: []map[string]any{{
				"student_id": "mock-student",
				"name":       "Mock Student",
				"status":     "Present",
				"confidence": 0.92,
			}},
		}, nil
	}
	script := filepath.Join(c.ModelDir, "face_recognition_system.py")
	return c.invoke(ctx, "attendance", script, "attendance", subject, imagePath, token)
}

// RegisterFace enrolls a student's face image.
func (c *Client) RegisterFace(ctx context.Context, studentID, name, imagePath, token string) (*Result, error) {
	if c.Skip {
		return &Result{Success: true, Message: "student registered (mock)"}, nil
	}
	script := filepath.Join(c.ModelDir, "face_recognition_system.py")
	return c.invoke(ctx, "register", script, "register", studentID, name, imagePath, token)
}

// CompareHandwriting runs the similarity pipeline for a student's stored
// sample against their latest submission.
func (c *Client) CompareHandwriting(ctx context.Context, studentID string) (*CompareResult, error) {
	if c.Skip {
		return &CompareResult{Success: true, Similarity: 0.87, Match: true, Message: "compared (mock)"}, nil
	}
	script := filepath.Join(c.ModelDir, "compare_handwriting.py")
	stdout, err := c.exec(ctx, "compare", script, "--student_id", studentID)
	if err != nil {
		return nil, err
	}
	var out CompareResult
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, &portal.ExternalProcessError{Op: "compare", Stdout: string(stdout), Err: err}
	}
	return &out, nil
}

func (c *Client) invoke(ctx context.Context, op, script string, args ...string) (*Result, error) {
	stdout, err := c.exec(ctx, op, script, args...)
	if err != nil {
		return nil, err
	}
	var out Result
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, &portal.ExternalProcessError{Op: op, Stdout: string(stdout), Err: err}
	}
	return &out, nil
}

func (c *Client) exec(ctx context.Context, op, script string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	argv := append([]string{script}, args...)
	stdout, stderr, err := c.run(ctx, c.PythonBin, argv...)
	if err != nil {
		return nil, &portal.ExternalProcessError{
			Op:     op,
			Stdout: string(stdout),
			Stderr: string(stderr),
			Err:    err,
		}
	}
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, &portal.ExternalProcessError{Op: op, Stderr: string(stderr), Err: errEmptyOutput}
	}
	return stdout, nil
}

var errEmptyOutput = errors.New("empty output")
