package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultTranscriptionModel = "whisper-1"
	DefaultLanguage           = "ru"
	maxAudioBytes             = 25 << 20 // backend upload limit
)

// TranscriberConfig configures an OpenAI-compatible /audio/transcriptions backend.
type TranscriberConfig struct {
	Endpoint   string // base URL, e.g. https://api.openai.com/v1
	APIKey     string
	Model      string
	Language   string // ISO-639-1 hint
	Timeout    time.Duration
	RetryDelay time.Duration
}

// SpeechClient implements Transcriber over HTTP.
type SpeechClient struct {
	cfg        TranscriberConfig
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Transcriber = (*SpeechClient)(nil)

// NewTranscriber creates a speech-to-text client.
func NewTranscriber(cfg TranscriberConfig, logger *slog.Logger) *SpeechClient {
	if cfg.Model == "" {
		cfg.Model = DefaultTranscriptionModel
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeechClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "stt"),
	}
}

// Transcribe uploads the recording and returns its text.
func (c *SpeechClient) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if c.cfg.Endpoint == "" {
		return "", parseErr("transcription endpoint not configured", nil)
	}
	if len(audio.Data) == 0 {
		return "", parseErr("empty audio", nil)
	}
	if len(audio.Data) > maxAudioBytes {
		return "", parseErr(fmt.Sprintf("audio larger than %d bytes", maxAudioBytes), nil)
	}
	body, contentType, err := c.encode(audio)
	if err != nil {
		return "", parseErr("encode audio", err)
	}

	start := time.Now()
	var text string
	err = withRetry(ctx, c.logger, c.cfg.RetryDelay, func() error {
		var err error
		text, err = c.doRequest(ctx, body, contentType)
		return err
	})
	if err != nil {
		return "", parseErr("transcription failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", parseErr("empty transcription", nil)
	}
	c.logger.Info("audio transcribed", "bytes", len(audio.Data), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

func (c *SpeechClient) encode(audio Audio) ([]byte, string, error) {
	name := filepath.Base(audio.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "voice.ogg"
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(audio.Data); err != nil {
		return nil, "", err
	}
	fields := map[string]string{
		"model":           c.cfg.Model,
		"language":        c.cfg.Language,
		"response_format": "json",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *SpeechClient) doRequest(ctx context.Context, body []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/audio/transcriptions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", retryableError{err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", retryableError{err}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", retryableError{fmt.Errorf("backend returned status %d", resp.StatusCode)}
	}

	var out transcriptionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("backend returned status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return out.Text, nil
}
