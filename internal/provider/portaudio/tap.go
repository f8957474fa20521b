// Package portaudio taps the microphone as a secondary audio source when
// the capture provider delivers video only. Samples feed the same callback
// bridge as provider audio.
package portaudio

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/ahzs645/screencapture/internal/capture"
)

const framesPerBuffer = 1024 // ~21ms at 48kHz

// Tap captures microphone input and delivers it as audio frames.
type Tap struct {
	sampleRate   int
	excludedDevs []string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	stream  *portaudio.Stream
}

// New creates a microphone tap.
func New(sampleRate int, excludedDevices []string) *Tap {
	return &Tap{sampleRate: sampleRate, excludedDevs: excludedDevices}
}

// Start opens the best available input device and begins delivering audio
// frames to cb. No-op if already running.
func (t *Tap) Start(ctx context.Context, cb capture.Callbacks) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return err
	}

	dev, err := t.pickDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(t.sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	buf := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		_ = portaudio.Terminate()
		return err
	}

	tapCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.running = true
	t.cancel = cancel
	t.done = make(chan struct{})
	t.stream = stream

	slog.Info("microphone tap started", "device", dev.Name, "sample_rate", t.sampleRate)

	go t.pump(tapCtx, cb, buf)
	return nil
}

func (t *Tap) pump(ctx context.Context, cb capture.Callbacks, buf []float32) {
	defer close(t.done)

	epoch := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := t.stream.Read(); err != nil {
			slog.Debug("microphone read error", "error", err)
			return
		}

		cb.OnAudioFrame(pcm16Bytes(buf), capture.FrameInfo{
			PTS:        int64(time.Since(epoch)),
			SampleRate: t.sampleRate,
			Channels:   1,
		})
	}
}

// Stop halts capture and releases the device. Safe to call when not
// running.
func (t *Tap) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}

	t.cancel()
	_ = t.stream.Stop()
	<-t.done
	_ = t.stream.Close()
	t.stream = nil
	t.running = false
	_ = portaudio.Terminate()
}

// pickDevice prefers built-in microphones over external or virtual ones.
func (t *Tap) pickDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	var best *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 || t.isExcluded(dev.Name) {
			continue
		}
		if !isMicrophone(dev.Name) {
			continue
		}
		if best == nil || preferDevice(dev.Name, best.Name) {
			best = dev
		}
	}
	if best == nil {
		if def, err := portaudio.DefaultInputDevice(); err == nil {
			return def, nil
		}
		return nil, err
	}
	return best, nil
}

func (t *Tap) isExcluded(name string) bool {
	for _, ex := range t.excludedDevs {
		if containsIgnoreCase(name, ex) {
			return true
		}
	}
	return false
}

func isMicrophone(name string) bool {
	// Virtual loopback devices would echo system output back into the
	// recording.
	virtual := []string{"blackhole", "vb-cable", "loopback", "monitor", "soundflower"}
	for _, kw := range virtual {
		if containsIgnoreCase(name, kw) {
			return false
		}
	}
	keywords := []string{"microphone", "input", "mic", "built-in"}
	for _, kw := range keywords {
		if containsIgnoreCase(name, kw) {
			return true
		}
	}
	return false
}

func preferDevice(name, current string) bool {
	preferred := []string{"macbook", "built-in"}
	for _, p := range preferred {
		if containsIgnoreCase(name, p) && !containsIgnoreCase(current, p) {
			return true
		}
	}
	return false
}

// pcm16Bytes converts float32 samples to little-endian 16-bit PCM.
func pcm16Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func containsIgnoreCase(s, substr string) bool {
	if len(substr) > len(s) {
		return false
	}
	for i := 0; i <= len(s)-len(substr); i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			c1, c2 := s[i+j], substr[j]
			if c1 >= 'A' && c1 <= 'Z' {
				c1 += 'a' - 'A'
			}
			if c2 >= 'A' && c2 <= 'Z' {
				c2 += 'a' - 'A'
			}
			if c1 != c2 {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
