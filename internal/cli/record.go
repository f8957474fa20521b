package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/catalog"
	pa "github.com/ahzs645/screencapture/internal/provider/portaudio"
	"github.com/ahzs645/screencapture/internal/session"
	"github.com/ahzs645/screencapture/internal/transcribe"
	"github.com/ahzs645/screencapture/internal/writer"
)

// NewRecordCmd records a source until interrupted or the duration elapses.
func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var (
		sourceID string
		output   string
		width    int
		height   int
		fps      int
		cursor   bool
		audio    bool
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a display or window",
		Long:  "Record the given source to an MP4 file. Stops on Ctrl+C or after --duration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := resolveSource(deps, sourceID)
			if err != nil {
				return err
			}

			cfg := capture.DefaultConfig(output)
			if width > 0 {
				cfg.Width = width
			}
			if height > 0 {
				cfg.Height = height
			}
			if fps > 0 {
				cfg.FPS = fps
			}
			cfg.ShowCursor = cursor
			cfg.CaptureAudio = audio

			opts := session.Options{
				Permissions: deps.Gate,
				NewWriter:   func() capture.Writer { return writer.New(deps.Env.WriterBackend) },
				Env:         deps.Env,
			}
			if d := transcribe.NewFromConfig(deps.Env); d != nil {
				opts.Transcriber = d
			}
			if deps.Env.MicrophoneFallback {
				opts.MicTap = pa.New(deps.Env.MicSampleRate, deps.Env.ExcludedMicDevices)
			}

			controller := session.New(deps.Provider, opts)

			id, err := controller.Start(cmd.Context(), source, cfg)
			if err != nil {
				return err
			}
			fmt.Printf("recording %s -> %s (session %s), Ctrl+C to stop\n", source.ID, cfg.OutputPath, id)

			waitForStop(controller, duration)

			path, err := controller.Stop(context.Background())
			if err != nil {
				return fmt.Errorf("recording ended with error (partial output at %s): %w", path, err)
			}

			stats := controller.Stats()
			fmt.Printf("saved %s: %d video frames, %d audio samples, %d dropped, %.1fs\n",
				path, stats.VideoFrameCount, stats.AudioSampleCount, stats.DroppedFrameCount, stats.ElapsedSeconds)
			if lastErr := controller.LastError(); lastErr != nil {
				fmt.Printf("capture stopped by provider: %v\n", lastErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceID, "source", "s", "", "Source id from 'recorder list' (default: first display)")
	cmd.Flags().StringVarP(&output, "output", "o", "recording.mp4", "Output file path")
	cmd.Flags().IntVar(&width, "width", 0, "Output width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Output height in pixels")
	cmd.Flags().IntVar(&fps, "fps", 0, "Frames per second")
	cmd.Flags().BoolVar(&cursor, "cursor", true, "Include the cursor")
	cmd.Flags().BoolVar(&audio, "audio", false, "Capture audio")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop automatically after this long (0 = until Ctrl+C)")

	return cmd
}

func resolveSource(deps *Dependencies, sourceID string) (capture.Source, error) {
	cat := catalog.New(deps.Provider)
	sources, err := cat.Discover(context.Background(), deps.Env.DiscoveryTimeout)
	if err != nil {
		return capture.Source{}, err
	}
	if len(sources) == 0 {
		return capture.Source{}, fmt.Errorf("no recordable sources found")
	}
	if sourceID == "" {
		for _, s := range sources {
			if s.Kind == capture.SourceDisplay {
				return s, nil
			}
		}
		return sources[0], nil
	}
	for _, s := range sources {
		if s.ID == sourceID {
			return s, nil
		}
	}
	return capture.Source{}, fmt.Errorf("source %q not found; ids are only valid within one discovery pass, re-run 'recorder list'", sourceID)
}

// waitForStop blocks until a signal, the optional duration, or a
// provider-side failure ends the session.
func waitForStop(controller *session.Controller, duration time.Duration) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return
		case <-timeout:
			return
		case <-ticker.C:
			if controller.State() == session.Failed {
				return
			}
		}
	}
}
