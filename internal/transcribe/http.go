package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ahzs645/screencapture/internal/errors"
)

// HTTPBackend submits the media file to a transcription HTTP API as a
// multipart upload and parses the JSON response.
type HTTPBackend struct {
	URL      string
	APIKey   string
	Language string
	Client   *http.Client
}

// NewHTTPBackend creates a backend for the given endpoint.
func NewHTTPBackend(url, apiKey, language string) *HTTPBackend {
	return &HTTPBackend{
		URL:      url,
		APIKey:   apiKey,
		Language: language,
		Client:   &http.Client{Timeout: 10 * time.Minute},
	}
}

// Transcribe uploads the file and returns the parsed transcript.
func (b *HTTPBackend) Transcribe(ctx context.Context, mediaPath string) (*Result, error) {
	if b.URL == "" {
		return nil, errors.New(errors.KindInvalidConfiguration, "transcription URL is not configured")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if b.Language != "" {
		if err := writer.WriteField("language", b.Language); err != nil {
			return nil, err
		}
	}

	file, err := os.Open(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("opening media file: %w", err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(mediaPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTranscriptionFailure, "transcription request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTranscriptionFailure, "reading transcription response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.KindTranscriptionFailure, "transcription API returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, errors.Wrap(err, errors.KindTranscriptionFailure, "parsing transcription response")
	}

	result := &Result{Text: apiResp.Text}
	for _, seg := range apiResp.Segments {
		result.Segments = append(result.Segments, Segment{
			Start: time.Duration(seg.Start * float64(time.Second)),
			End:   time.Duration(seg.End * float64(time.Second)),
			Text:  seg.Text,
		})
	}
	return result, nil
}

// apiResponse matches the transcription API response shape.
type apiResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}
