package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahzs645/screencapture/internal/config"
	"github.com/ahzs645/screencapture/internal/errors"
)

type fakeBackend struct {
	calls  atomic.Int32
	result *Result
	err    error
}

func (b *fakeBackend) Transcribe(ctx context.Context, mediaPath string) (*Result, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return b.result, nil
}

func waitForJob(t *testing.T, d *Dispatcher, id string) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := d.Lookup(id)
		if ok && (job.State == JobDone || job.State == JobFailed) {
			return job
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("job never settled")
	return Job{}
}

func TestDispatcherWritesTextSidecar(t *testing.T) {
	media := filepath.Join(t.TempDir(), "rec.mp4")
	backend := &fakeBackend{result: &Result{Text: "hello world"}}
	d := NewDispatcher(backend, &config.Config{TranscriptionFormat: FormatText})

	id, err := d.Submit(context.Background(), media)
	if err != nil {
		t.Fatal(err)
	}
	job := waitForJob(t, d, id)

	if job.State != JobDone {
		t.Fatalf("state = %v, err = %v", job.State, job.Err)
	}
	data, err := os.ReadFile(media + ".txt")
	if err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if strings.TrimSpace(string(data)) != "hello world" {
		t.Errorf("sidecar = %q", data)
	}
}

func TestDispatcherMarksFailureWithoutPanicking(t *testing.T) {
	backend := &fakeBackend{err: errors.New(errors.KindInvalidConfiguration, "no url")}
	d := NewDispatcher(backend, &config.Config{TranscriptionFormat: FormatText})

	id, err := d.Submit(context.Background(), "/nonexistent/rec.mp4")
	if err != nil {
		t.Fatal(err)
	}
	job := waitForJob(t, d, id)

	if job.State != JobFailed {
		t.Fatalf("state = %v, want failed", job.State)
	}
	if !errors.IsKind(job.Err, errors.KindTranscriptionFailure) {
		t.Errorf("job err = %v, want TranscriptionFailure", job.Err)
	}
	if backend.calls.Load() != 1 {
		t.Errorf("non-retryable error retried %d times", backend.calls.Load())
	}
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	backend := &retryThenSucceed{failures: 2}
	d := NewDispatcher(backend, &config.Config{TranscriptionFormat: FormatText})
	d.retry.BaseDelay = time.Millisecond
	d.retry.MaxDelay = 5 * time.Millisecond

	media := filepath.Join(t.TempDir(), "rec.mp4")
	id, _ := d.Submit(context.Background(), media)
	job := waitForJob(t, d, id)

	if job.State != JobDone {
		t.Fatalf("state = %v, err = %v", job.State, job.Err)
	}
	if got := backend.calls.Load(); got != 3 {
		t.Errorf("backend called %d times, want 3", got)
	}
}

type retryThenSucceed struct {
	calls    atomic.Int32
	failures int32
}

func (b *retryThenSucceed) Transcribe(ctx context.Context, mediaPath string) (*Result, error) {
	if b.calls.Add(1) <= b.failures {
		return nil, errors.New(errors.KindTranscriptionFailure, "rate limited")
	}
	return &Result{Text: "ok"}, nil
}

func TestTranscriptPathPerFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{FormatText, "/tmp/a.mp4.txt"},
		{FormatSRT, "/tmp/a.mp4.srt"},
		{FormatJSON, "/tmp/a.mp4.transcript.json"},
		{"", "/tmp/a.mp4.txt"},
	}
	for _, tt := range tests {
		if got := transcriptPath("/tmp/a.mp4", tt.format); got != tt.want {
			t.Errorf("transcriptPath(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestRenderSRT(t *testing.T) {
	result := &Result{
		Segments: []Segment{
			{Start: 0, End: 1500 * time.Millisecond, Text: "first cue"},
			{Start: 2 * time.Second, End: 65 * time.Second, Text: "second cue"},
		},
	}
	srt := renderSRT(result)

	if !strings.Contains(srt, "1\n00:00:00,000 --> 00:00:01,500\nfirst cue") {
		t.Errorf("first cue malformed:\n%s", srt)
	}
	if !strings.Contains(srt, "2\n00:00:02,000 --> 00:01:05,000\nsecond cue") {
		t.Errorf("second cue malformed:\n%s", srt)
	}
}

func TestRenderSRTWithoutSegments(t *testing.T) {
	srt := renderSRT(&Result{Text: "flat text"})
	if !strings.Contains(srt, "flat text") {
		t.Errorf("fallback cue missing:\n%s", srt)
	}
}
