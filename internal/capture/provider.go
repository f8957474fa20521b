package capture

import (
	"context"
	"errors"
	"fmt"
)

// SessionHandle identifies a provider-side capture session. Opaque to the
// core; callbacks carry only the registry token, never this handle.
type SessionHandle interface {
	ID() string
}

// Callbacks receives provider deliveries. All three may be invoked from
// threads the core does not control, video and audio concurrently. Every
// implementation must copy the bytes it needs before returning; raw buffers
// are recycled by the provider immediately afterwards.
type Callbacks interface {
	OnVideoFrame(raw []byte, frame FrameInfo)
	OnAudioFrame(raw []byte, frame FrameInfo)
	OnStopped(err error)
}

// FrameInfo carries per-delivery metadata alongside the raw buffer.
type FrameInfo struct {
	PTS         int64 // nanoseconds, provider clock
	PixelFormat string
	Width       int
	Height      int
	SampleRate  int
	Channels    int
}

// Provider is the external platform capture subsystem: enumerates sources
// and streams frames into subscribed callbacks.
type Provider interface {
	// DiscoverSources performs a fresh enumeration. Honors ctx cancellation
	// only insofar as the eventual late result is discarded by the caller.
	DiscoverSources(ctx context.Context) ([]Source, error)

	// CreateSession allocates provider resources for one source.
	CreateSession(source Source, cfg Config) (SessionHandle, error)

	// Subscribe attaches callbacks to a session. Must happen before
	// StartDelivery.
	Subscribe(h SessionHandle, cb Callbacks) error

	// StartDelivery begins frame delivery and returns once the provider
	// acknowledges, or with an error if it refuses to start.
	StartDelivery(ctx context.Context, h SessionHandle) error

	// StopDelivery halts frame delivery. Safe to call more than once.
	StopDelivery(h SessionHandle)

	// Release frees provider resources for the session.
	Release(h SessionHandle)
}

// ErrParamsRejected is returned (wrapped) by Writer.Open when the encoder
// backend refuses a codec/parameter combination. The pipeline retries once
// with a reduced parameter set before giving up.
var ErrParamsRejected = errors.New("encoder rejected parameter set")

// VideoParams configures the video track of the output container.
type VideoParams struct {
	Codec            string
	Width            int
	Height           int
	FPS              int
	PixelFormat      string
	AverageBitrate   int // bits per second; 0 = encoder default
	KeyFrameInterval int // frames between keyframes; 0 = encoder default
}

// Reduced strips the hints some encoder backends reject, keeping only
// codec and geometry.
func (v VideoParams) Reduced() VideoParams {
	return VideoParams{Codec: v.Codec, Width: v.Width, Height: v.Height}
}

// DeriveVideoParams computes the full parameter set for a session config:
// 8 bits/pixel average bitrate and a keyframe every two seconds.
func DeriveVideoParams(cfg Config) VideoParams {
	return VideoParams{
		Codec:            "h264",
		Width:            cfg.Width,
		Height:           cfg.Height,
		FPS:              cfg.FPS,
		PixelFormat:      cfg.PixelFormat,
		AverageBitrate:   cfg.Width * cfg.Height * 8,
		KeyFrameInterval: cfg.FPS * 2,
	}
}

// AudioParams configures the audio track of the output container.
type AudioParams struct {
	Codec      string
	SampleRate int
	Channels   int
}

// Writer is the external encoder/muxer serializing frames to the output
// container. Open and Finalize may block; Write calls are invoked from the
// single pipeline goroutine only.
type Writer interface {
	Open(ctx context.Context, path string, video VideoParams, audio *AudioParams) error
	WriteVideo(frame *SampleFrame) error
	WriteAudio(frame *SampleFrame) error

	// Finalize marks the container complete and waits for the writer's
	// asynchronous completion. Bytes already written survive a failed
	// finalize; partial output is a documented outcome.
	Finalize(ctx context.Context) error
}

func (f FrameInfo) String() string {
	return fmt.Sprintf("pts=%dns %dx%d fmt=%s", f.PTS, f.Width, f.Height, f.PixelFormat)
}
