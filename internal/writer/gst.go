package writer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/ahzs645/screencapture/internal/capture"
)

// Gst muxes frames into an MP4 container via a GStreamer pipeline:
//
//	appsrc → (jpegdec) → videoconvert → videoscale → capsfilter →
//	x264enc → h264parse → mp4mux → filesink
//
// with an optional parallel audio branch:
//
//	appsrc → audioconvert → audioresample → avenc_aac → mp4mux
//
// Frames are pushed from the single pipeline goroutine; Open and Finalize
// may block on GStreamer state changes.
type Gst struct {
	pipeline *gst.Pipeline
	videoSrc *app.Source
	audioSrc *app.Source
	path     string
}

// NewGst creates an unopened GStreamer writer.
func NewGst() *Gst {
	return &Gst{}
}

// Open builds and starts the pipeline. Bitrate and keyframe hints that the
// encoder element refuses surface as ErrParamsRejected so the caller can
// retry with the reduced parameter set.
func (g *Gst) Open(ctx context.Context, path string, video capture.VideoParams, audio *capture.AudioParams) error {
	if video.Codec != "h264" {
		return fmt.Errorf("codec %q: %w", video.Codec, capture.ErrParamsRejected)
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	mux, err := gst.NewElement("mp4mux")
	if err != nil {
		return fmt.Errorf("failed to create mp4mux: %w", err)
	}
	filesink, err := gst.NewElement("filesink")
	if err != nil {
		return fmt.Errorf("failed to create filesink: %w", err)
	}
	if err := filesink.SetProperty("location", path); err != nil {
		return fmt.Errorf("failed to set output location: %w", err)
	}

	videoSrc, videoChain, err := buildVideoBranch(video)
	if err != nil {
		return err
	}

	elements := append([]*gst.Element{}, videoChain...)
	elements = append(elements, mux, filesink)
	if err := pipeline.AddMany(elements...); err != nil {
		return fmt.Errorf("failed to assemble pipeline: %w", err)
	}
	if err := gst.ElementLinkMany(videoChain...); err != nil {
		return fmt.Errorf("failed to link video branch: %w", err)
	}
	if err := videoChain[len(videoChain)-1].Link(mux); err != nil {
		return fmt.Errorf("failed to link video branch to muxer: %w", err)
	}
	if err := mux.Link(filesink); err != nil {
		return fmt.Errorf("failed to link muxer to sink: %w", err)
	}

	var audioSrc *app.Source
	if audio != nil {
		var audioChain []*gst.Element
		audioSrc, audioChain, err = buildAudioBranch(*audio)
		if err != nil {
			return err
		}
		if err := pipeline.AddMany(audioChain...); err != nil {
			return fmt.Errorf("failed to add audio branch: %w", err)
		}
		if err := gst.ElementLinkMany(audioChain...); err != nil {
			return fmt.Errorf("failed to link audio branch: %w", err)
		}
		if err := audioChain[len(audioChain)-1].Link(mux); err != nil {
			return fmt.Errorf("failed to link audio branch to muxer: %w", err)
		}
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	g.pipeline = pipeline
	g.videoSrc = videoSrc
	g.audioSrc = audioSrc
	g.path = path
	slog.Debug("gst writer opened", "path", path, "codec", video.Codec, "audio", audio != nil)
	return nil
}

// buildVideoBranch assembles appsrc through h264parse for the negotiated
// input format.
func buildVideoBranch(video capture.VideoParams) (*app.Source, []*gst.Element, error) {
	src, err := app.NewAppSrc()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create video appsrc: %w", err)
	}
	src.SetProperty("format", 3) // GST_FORMAT_TIME
	src.SetProperty("is-live", true)

	var chain []*gst.Element
	chain = append(chain, src.Element)

	switch video.PixelFormat {
	case capture.PixelFormatJPEG:
		src.SetCaps(gst.NewCapsFromString("image/jpeg"))
		jpegdec, err := gst.NewElement("jpegdec")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create jpegdec: %w", err)
		}
		chain = append(chain, jpegdec)
	default:
		src.SetCaps(gst.NewCapsFromString(fmt.Sprintf(
			"video/x-raw,format=BGRA,width=%d,height=%d,framerate=%d/1",
			video.Width, video.Height, video.FPS)))
	}

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create videoscale: %w", err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=I420,width=%d,height=%d", video.Width, video.Height)))

	encoder, err := gst.NewElement("x264enc")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create x264enc: %w", err)
	}
	encoder.SetProperty("speed-preset", 1) // ultrafast; screen capture is latency-bound

	// Encoder hints are optional; the element rejecting them is the
	// signal to retry with the reduced parameter set.
	if video.AverageBitrate > 0 {
		if err := encoder.SetProperty("bitrate", uint(video.AverageBitrate/1000)); err != nil {
			return nil, nil, fmt.Errorf("bitrate hint: %w", capture.ErrParamsRejected)
		}
	}
	if video.KeyFrameInterval > 0 {
		if err := encoder.SetProperty("key-int-max", uint(video.KeyFrameInterval)); err != nil {
			return nil, nil, fmt.Errorf("keyframe hint: %w", capture.ErrParamsRejected)
		}
	}

	parse, err := gst.NewElement("h264parse")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create h264parse: %w", err)
	}

	chain = append(chain, convert, scale, capsfilter, encoder, parse)
	return src, chain, nil
}

func buildAudioBranch(audio capture.AudioParams) (*app.Source, []*gst.Element, error) {
	src, err := app.NewAppSrc()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create audio appsrc: %w", err)
	}
	src.SetProperty("format", 3)
	src.SetProperty("is-live", true)
	src.SetCaps(gst.NewCapsFromString(fmt.Sprintf(
		"audio/x-raw,format=S16LE,rate=%d,channels=%d,layout=interleaved",
		audio.SampleRate, audio.Channels)))

	convert, err := gst.NewElement("audioconvert")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create audioconvert: %w", err)
	}
	resample, err := gst.NewElement("audioresample")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create audioresample: %w", err)
	}
	encoder, err := gst.NewElement("avenc_aac")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create aac encoder: %w", err)
	}

	return src, []*gst.Element{src.Element, convert, resample, encoder}, nil
}

// WriteVideo pushes one video frame with its rebased timestamp.
func (g *Gst) WriteVideo(f *capture.SampleFrame) error {
	return push(g.videoSrc, f)
}

// WriteAudio pushes one audio buffer with its rebased timestamp.
func (g *Gst) WriteAudio(f *capture.SampleFrame) error {
	if g.audioSrc == nil {
		return nil
	}
	return push(g.audioSrc, f)
}

func push(src *app.Source, f *capture.SampleFrame) error {
	buffer := gst.NewBufferFromBytes(f.Data)
	buffer.SetPresentationTimestamp(f.PTS)

	if ret := src.PushBuffer(buffer); ret != gst.FlowOK {
		return fmt.Errorf("gstreamer rejected buffer: flow %v", ret)
	}
	return nil
}

// Finalize signals end-of-stream, waits for the muxer to commit the moov
// atom, and tears the pipeline down. Bytes already written stay on disk
// even when the wait fails.
func (g *Gst) Finalize(ctx context.Context) error {
	if g.pipeline == nil {
		return nil
	}

	g.videoSrc.EndStream()
	if g.audioSrc != nil {
		g.audioSrc.EndStream()
	}

	done := make(chan error, 1)
	go func() {
		bus := g.pipeline.GetPipelineBus()
		for {
			msg := bus.TimedPopFiltered(gst.ClockTime(5*time.Second), gst.MessageEOS|gst.MessageError)
			if msg == nil {
				done <- fmt.Errorf("timed out waiting for end of stream")
				return
			}
			switch msg.Type() {
			case gst.MessageError:
				done <- msg.ParseError()
				return
			case gst.MessageEOS:
				done <- nil
				return
			}
		}
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if stateErr := g.pipeline.SetState(gst.StateNull); stateErr != nil && err == nil {
		err = stateErr
	}
	g.pipeline = nil
	slog.Debug("gst writer finalized", "path", g.path, "error", err)
	return err
}

var _ capture.Writer = (*Gst)(nil)
