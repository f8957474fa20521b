package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ahzs645/screencapture/internal/errors"
)

func TestHTTPBackendTranscribe(t *testing.T) {
	media := filepath.Join(t.TempDir(), "rec.mp4")
	if err := os.WriteFile(media, []byte("fake mp4 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not a multipart request: %v", err)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language field = %q, want en", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part missing: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key123" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello","segments":[{"start":0.5,"end":2.0,"text":"hello"}]}`))
	}))
	defer srv.Close()

	backend := NewHTTPBackend(srv.URL, "key123", "en")
	result, err := backend.Transcribe(context.Background(), media)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello" {
		t.Errorf("text = %q", result.Text)
	}
	if len(result.Segments) != 1 || result.Segments[0].Start != 500*time.Millisecond {
		t.Errorf("segments = %+v", result.Segments)
	}
}

func TestHTTPBackendNonOKStatus(t *testing.T) {
	media := filepath.Join(t.TempDir(), "rec.mp4")
	if err := os.WriteFile(media, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	backend := NewHTTPBackend(srv.URL, "", "")
	_, err := backend.Transcribe(context.Background(), media)
	if !errors.IsKind(err, errors.KindTranscriptionFailure) {
		t.Errorf("err = %v, want TranscriptionFailure", err)
	}
}

func TestHTTPBackendRequiresURL(t *testing.T) {
	backend := NewHTTPBackend("", "", "")
	_, err := backend.Transcribe(context.Background(), "/tmp/rec.mp4")
	if !errors.IsKind(err, errors.KindInvalidConfiguration) {
		t.Errorf("err = %v, want InvalidConfiguration", err)
	}
}
