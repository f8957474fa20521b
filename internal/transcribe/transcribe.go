// Package transcribe turns finished recordings into transcript sidecar
// files. Submission is asynchronous and strictly best-effort: no failure
// here ever invalidates the recording that produced the media file.
package transcribe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ahzs645/screencapture/internal/config"
	"github.com/ahzs645/screencapture/internal/errors"
	"github.com/ahzs645/screencapture/internal/resilience"
	"github.com/ahzs645/screencapture/internal/syncx"
	"github.com/ahzs645/screencapture/internal/trace"
)

// JobState tracks a transcription job through its lifetime.
type JobState int

const (
	JobPending JobState = iota
	JobRunning
	JobDone
	JobFailed
)

func (s JobState) String() string {
	return [...]string{"pending", "running", "done", "failed"}[s]
}

// Job is a snapshot of one transcription request.
type Job struct {
	ID             string
	MediaPath      string
	TranscriptPath string
	State          JobState
	Err            error
}

// Segment is one timed span of recognized speech.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Result is a completed transcription.
type Result struct {
	Text     string
	Segments []Segment
}

// Backend performs the actual speech-to-text call.
type Backend interface {
	Transcribe(ctx context.Context, mediaPath string) (*Result, error)
}

// Dispatcher runs transcription jobs in the background, one goroutine per
// job, with retry and a circuit breaker in front of the backend.
type Dispatcher struct {
	backend Backend
	format  string
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
	jobs    *syncx.RWGuard[map[string]Job]
}

// NewFromConfig builds a dispatcher from env settings. Returns nil when
// transcription is disabled.
func NewFromConfig(env *config.Config) *Dispatcher {
	if !env.TranscriptionEnabled {
		return nil
	}
	var backend Backend
	switch env.TranscriptionBackend {
	case "stream":
		backend = NewStreamBackend(env.TranscriptionURL, env.TranscriptionAPIKey, env.TranscriptionLanguage)
	default:
		backend = NewHTTPBackend(env.TranscriptionURL, env.TranscriptionAPIKey, env.TranscriptionLanguage)
	}
	return NewDispatcher(backend, env)
}

// NewDispatcher creates a dispatcher for the configured backend.
func NewDispatcher(backend Backend, env *config.Config) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		format:  env.TranscriptionFormat,
		retry:   resilience.TranscriptionRetryConfig(),
		breaker: resilience.NewBreaker(resilience.Config{}),
		jobs:    syncx.NewGuard(make(map[string]Job)),
	}
}

// Submit enqueues mediaPath for transcription and returns the job id. The
// call never blocks on the backend.
func (d *Dispatcher) Submit(ctx context.Context, mediaPath string) (string, error) {
	job := Job{
		ID:             uuid.NewString(),
		MediaPath:      mediaPath,
		TranscriptPath: transcriptPath(mediaPath, d.format),
		State:          JobPending,
	}
	d.store(job)

	go d.run(context.WithoutCancel(ctx), job)
	return job.ID, nil
}

// Lookup returns the job snapshot, if known.
func (d *Dispatcher) Lookup(id string) (Job, bool) {
	v := d.jobs.Read(func(m map[string]Job) any {
		job, ok := m[id]
		if !ok {
			return nil
		}
		return job
	})
	if v == nil {
		return Job{}, false
	}
	return v.(Job), true
}

func (d *Dispatcher) run(ctx context.Context, job Job) {
	log := trace.Logger(ctx)
	job.State = JobRunning
	d.store(job)

	var result *Result
	err := resilience.Retry(ctx, d.retry, func() error {
		return d.breaker.Execute(func() error {
			var terr error
			result, terr = d.backend.Transcribe(ctx, job.MediaPath)
			return terr
		})
	})
	if err != nil {
		job.State = JobFailed
		job.Err = errors.Wrap(err, errors.KindTranscriptionFailure, "transcription backend failed")
		d.store(job)
		log.Warn("transcription failed, recording unaffected", "job_id", job.ID, "error", err)
		return
	}

	if err := writeTranscript(job.TranscriptPath, d.format, result); err != nil {
		job.State = JobFailed
		job.Err = errors.Wrap(err, errors.KindTranscriptionFailure, "transcript write failed")
		d.store(job)
		log.Warn("transcript write failed", "job_id", job.ID, "error", err)
		return
	}

	job.State = JobDone
	d.store(job)
	log.Info("transcription complete", "job_id", job.ID, "transcript", job.TranscriptPath)
}

func (d *Dispatcher) store(job Job) {
	d.jobs.Write(func(m *map[string]Job) {
		(*m)[job.ID] = job
	})
}
