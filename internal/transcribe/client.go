// Package transcribe talks to the external video transcription service.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults for the transcription service.
const (
	DefaultBaseURL  = "http://localhost:5001"
	DefaultTimeout  = 30 * time.Minute
	DefaultLanguage = "en-EN"
	DefaultNoise    = 1
	MaxFileSize     = 100 << 20
)

// SupportedFormats are the accepted video extensions.
var SupportedFormats = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm", ".m4v"}

var (
	ErrTimedOut          = errors.New("transcription timed out")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = fmt.Errorf("file too large: maximum size %dMB", MaxFileSize>>20)
)

// ServiceError is a failure reported by the transcription service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("transcription service error (%d): %s", e.StatusCode, e.Message)
}

// Options are the per-upload knobs. A nil NoiseReduction sends DefaultNoise;
// zero is a valid level.
type Options struct {
	NoiseReduction *int
	Language       string
}

// Noise returns the level sent to the service.
func (o Options) Noise() int {
	if o.NoiseReduction == nil {
		return DefaultNoise
	}
	return *o.NoiseReduction
}

// Result is a finished transcription.
type Result struct {
	Transcription string `json:"transcription"`
	Message       string `json:"message,omitempty"`
}

// Client uploads videos to the service.
type Client struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a Client; empty values take the defaults.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Timeout:    timeout,
		HTTPClient: &http.Client{},
	}
}

// Supported reports whether filename has an accepted extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range SupportedFormats {
		if ext == f {
			return true
		}
	}
	return false
}

// Transcribe uploads r as filename and waits for the transcript. The whole
// exchange is bounded by the client timeout; hitting it returns ErrTimedOut.
func (c *Client) Transcribe(ctx context.Context, filename string, r io.Reader, opts Options) (*Result, error) {
	if !Supported(filename) {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, filepath.Ext(filename), strings.Join(SupportedFormats, ", "))
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	body, contentType := multipartBody(filename, r, opts)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transcribe", body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimedOut
		}
		if errors.Is(err, ErrFileTooLarge) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Success       bool   `json:"success"`
		Transcription string `json:"transcription"`
		Message       string `json:"message"`
		Error         string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimedOut
		}
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unreadable response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK || !payload.Success {
		msg := payload.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: msg}
	}
	return &Result{Transcription: payload.Transcription, Message: payload.Message}, nil
}

// multipartBody streams the upload through a pipe so large videos are not
// buffered in memory.
func multipartBody(filename string, r io.Reader, opts Options) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeParts(mw, filename, r, opts)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType()
}

func writeParts(mw *multipart.Writer, filename string, r io.Reader, opts Options) error {
	if err := mw.WriteField("noise_reduction", strconv.Itoa(opts.Noise())); err != nil {
		return err
	}
	if err := mw.WriteField("language", opts.Language); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("video", filepath.Base(filename))
	if err != nil {
		return err
	}
	n, err := io.Copy(part, io.LimitReader(r, MaxFileSize+1))
	if err == nil && n > MaxFileSize {
		return ErrFileTooLarge
	}
	return err
}

// Health checks the service's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcription service unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &ServiceError{StatusCode: resp.StatusCode, Message: "unhealthy"}
	}
	return nil
}
