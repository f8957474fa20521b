// Package config handles recorder configuration
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Discovery
	DiscoveryTimeout time.Duration

	// Bridge queues; zero means "size for ~1s of frames at the session fps"
	VideoQueueCapacity int
	AudioQueueCapacity int

	// Pipeline
	SkipDuplicateFrames bool
	DuplicateHashSize   int // downscale edge length before hashing

	// Writer backend: "gst" or "null"
	WriterBackend string

	// Microphone tap (portaudio) when the platform provider has no audio
	MicrophoneFallback bool
	MicSampleRate      int
	ExcludedMicDevices []string

	// Transcription
	TranscriptionEnabled  bool
	TranscriptionBackend  string // "http" or "stream"
	TranscriptionURL      string
	TranscriptionAPIKey   string
	TranscriptionLanguage string
	TranscriptionFormat   string // "text", "srt", "json"

	// Stats sidecar written next to the output on stop
	WriteStatsSidecar bool
}

func Load() *Config {
	return &Config{
		DiscoveryTimeout:      getEnvDuration("DISCOVERY_TIMEOUT_MS", 5000),
		VideoQueueCapacity:    getEnvInt("VIDEO_QUEUE_CAPACITY", 0),
		AudioQueueCapacity:    getEnvInt("AUDIO_QUEUE_CAPACITY", 0),
		SkipDuplicateFrames:   getEnvBool("SKIP_DUPLICATE_FRAMES", false),
		DuplicateHashSize:     getEnvInt("DUPLICATE_HASH_SIZE", 64),
		WriterBackend:         getEnv("WRITER_BACKEND", "gst"),
		MicrophoneFallback:    getEnvBool("MICROPHONE_FALLBACK", false),
		MicSampleRate:         getEnvInt("MIC_SAMPLE_RATE", 48000),
		ExcludedMicDevices:    getEnvList("EXCLUDED_MIC_DEVICES", nil),
		TranscriptionEnabled:  getEnvBool("TRANSCRIPTION_ENABLED", false),
		TranscriptionBackend:  getEnv("TRANSCRIPTION_BACKEND", "http"),
		TranscriptionURL:      getEnv("TRANSCRIPTION_URL", ""),
		TranscriptionAPIKey:   getEnv("TRANSCRIPTION_API_KEY", ""),
		TranscriptionLanguage: getEnv("TRANSCRIPTION_LANGUAGE", "en"),
		TranscriptionFormat:   getEnv("TRANSCRIPTION_FORMAT", "text"),
		WriteStatsSidecar:     getEnvBool("WRITE_STATS_SIDECAR", true),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, defMillis int) time.Duration {
	return time.Duration(getEnvInt(key, defMillis)) * time.Millisecond
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
