// Package transcription turns recorded audio into text.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"dreamcatcher/application/ports"
	pkgerrors "dreamcatcher/pkg/errors"
)

// WhisperClient calls the OpenAI audio transcription endpoint.
type WhisperClient struct {
	baseURL  string
	apiKey   string
	model    string
	language string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

var _ ports.Transcriber = (*WhisperClient)(nil)

// NewWhisperClient creates a client. language may be empty for auto-detect.
func NewWhisperClient(baseURL, apiKey, model, language string) *WhisperClient {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		model:    model,
		language: language,
		http:     &http.Client{Timeout: 2 * time.Minute},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "whisper",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func (w *WhisperClient) Name() string { return "whisper" }

// Transcribe uploads audio as multipart form data and returns the text.
func (w *WhisperClient) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", pkgerrors.NewInternal("failed to build upload").WithCause(err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", pkgerrors.NewInternal("failed to read audio").WithCause(err)
	}
	_ = form.WriteField("model", w.model)
	if w.language != "" {
		_ = form.WriteField("language", w.language)
	}
	if err := form.Close(); err != nil {
		return "", pkgerrors.NewInternal("failed to build upload").WithCause(err)
	}

	out, err := w.breaker.Execute(func() (interface{}, error) {
		return w.send(ctx, form.FormDataContentType(), body.Bytes())
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "", pkgerrors.NewUnavailable("whisper").WithCode(pkgerrors.CodeCircuitOpen)
		}
		return "", pkgerrors.NewExternal("whisper", err)
	}
	return strings.TrimSpace(out.(string)), nil
}

func (w *WhisperClient) send(ctx context.Context, contentType string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return result.Text, nil
}

// MockTranscriber returns a fixed transcript. Used when no API key is set.
type MockTranscriber struct {
	Text string
	Err  error
}

var _ ports.Transcriber = (*MockTranscriber)(nil)

func (m *MockTranscriber) Name() string { return "mock" }

func (m *MockTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return "", err
	}
	return m.Text, nil
}
