// Package capture defines the shared data model and the provider/writer
// boundary interfaces consumed by the recording pipeline.
package capture

import (
	"time"
)

// SourceKind distinguishes recordable entities.
type SourceKind int

const (
	SourceDisplay SourceKind = iota
	SourceWindow
)

func (k SourceKind) String() string {
	if k == SourceWindow {
		return "window"
	}
	return "display"
}

// Source is a discoverable recordable entity. IDs are stable within a single
// discovery pass only; window sets change constantly.
type Source struct {
	ID          string
	Kind        SourceKind
	DisplayName string
	PixelWidth  int
	PixelHeight int
}

// Pixel format and color space identifiers, matching the values the native
// capture stacks use.
const (
	PixelFormatBGRA = "BGRA"
	PixelFormatJPEG = "JPEG"
	PixelFormat420v = "420v"

	ColorSpaceSRGB      = "sRGB"
	ColorSpaceDisplayP3 = "DisplayP3"
)

// Dimension and rate limits enforced at session start.
const (
	MinDimension = 100
	MaxWidth     = 7680
	MaxHeight    = 4320
	MinFPS       = 1
	MaxFPS       = 120
)

// Config holds the per-session recording parameters. Validated once at
// session start and immutable afterwards.
type Config struct {
	OutputPath   string
	Width        int
	Height       int
	FPS          int
	ShowCursor   bool
	CaptureAudio bool
	PixelFormat  string
	ColorSpace   string
}

// DefaultConfig returns the parameter set used when the caller leaves
// fields unset: 1080p at 30fps, cursor visible, video only.
func DefaultConfig(outputPath string) Config {
	return Config{
		OutputPath:  outputPath,
		Width:       1920,
		Height:      1080,
		FPS:         30,
		ShowCursor:  true,
		PixelFormat: PixelFormatBGRA,
		ColorSpace:  ColorSpaceSRGB,
	}
}

// FrameKind tags a sample as video or audio.
type FrameKind int

const (
	FrameVideo FrameKind = iota
	FrameAudio
)

// SampleFrame is a fully-owned copy of one video or audio unit. Data never
// aliases provider memory; provider buffers are invalid the moment the
// delivering callback returns.
type SampleFrame struct {
	Kind FrameKind
	PTS  time.Duration
	Data []byte

	// Video fields
	PixelFormat string
	Width       int
	Height      int

	// Audio fields
	SampleRate int
	Channels   int
}

// PermissionState reports system authorization. Absence of capability is a
// state, not an error; callers render UI from it.
type PermissionState struct {
	ScreenRecordingGranted bool `json:"screen_recording_granted"`
	SystemCompatible       bool `json:"system_compatible"`
	ProviderAvailable      bool `json:"provider_available"`
}

// Ready reports whether a recording can be started at all.
func (p PermissionState) Ready() bool {
	return p.ScreenRecordingGranted && p.SystemCompatible && p.ProviderAvailable
}

// RecordingStats is an immutable snapshot of an in-progress or finished
// session, serializable for callers and the sidecar file.
type RecordingStats struct {
	IsRecording       bool    `json:"is_recording"`
	VideoFrameCount   uint64  `json:"video_frame_count"`
	AudioSampleCount  uint64  `json:"audio_sample_count"`
	DroppedFrameCount uint64  `json:"dropped_frame_count"`
	DuplicateFrames   uint64  `json:"duplicate_frames_elided"`
	ElapsedSeconds    float64 `json:"elapsed_seconds"`
	OutputPath        string  `json:"output_path"`
}
