package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "2", r.FormValue("noise_reduction"))
		assert.Equal(t, "en-EN", r.FormValue("language"))

		f, hdr, err := r.FormFile("video")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "meeting.mp4", hdr.Filename)
		assert.Equal(t, "fake video bytes", string(data))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"transcription": "We agreed on the launch date.",
			"message":       "Transcription completed successfully",
		})
	}))
	defer srv.Close()

	level := 2
	c := NewClient(srv.URL+"/", time.Second)
	res, err := c.Transcribe(context.Background(), "/tmp/meeting.mp4", strings.NewReader("fake video bytes"), Options{NoiseReduction: &level})
	require.NoError(t, err)
	assert.Equal(t, "We agreed on the launch date.", res.Transcription)
}

func TestTranscribe_NoiseReductionLevel(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		got = append(got, r.FormValue("noise_reduction"))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "transcription": "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	zero := 0
	_, err := c.Transcribe(context.Background(), "a.mp4", strings.NewReader("x"), Options{NoiseReduction: &zero})
	require.NoError(t, err)
	_, err = c.Transcribe(context.Background(), "a.mp4", strings.NewReader("x"), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1"}, got)
}

func TestTranscribe_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Failed to extract audio from video"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Transcribe(context.Background(), "a.mov", strings.NewReader("x"), Options{})
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "Failed to extract audio from video", se.Message)
}

func TestTranscribe_TimedOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Transcribe(context.Background(), "a.webm", strings.NewReader("x"), Options{})
	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestTranscribe_UnsupportedFormat(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	_, err := c.Transcribe(context.Background(), "notes.txt", strings.NewReader("x"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.True(t, Supported("CLIP.MP4"))
	assert.False(t, Supported("clip"))
}

func TestHealth(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.NoError(t, c.Health(context.Background()))

	healthy = false
	var se *ServiceError
	assert.True(t, errors.As(c.Health(context.Background()), &se))
}
