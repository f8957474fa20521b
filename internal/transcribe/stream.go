package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/ahzs645/screencapture/internal/errors"
)

const streamChunkSize = 32 * 1024

// StreamBackend feeds the media file over a websocket to a streaming
// speech-to-text service and accumulates the final transcript events.
type StreamBackend struct {
	URL      string
	APIKey   string
	Language string
}

// NewStreamBackend creates a backend for the given websocket endpoint.
func NewStreamBackend(url, apiKey, language string) *StreamBackend {
	return &StreamBackend{URL: url, APIKey: apiKey, Language: language}
}

// Transcribe streams the file and assembles the transcript from final
// events. Interim events are discarded.
func (b *StreamBackend) Transcribe(ctx context.Context, mediaPath string) (*Result, error) {
	if b.URL == "" {
		return nil, errors.New(errors.KindInvalidConfiguration, "transcription URL is not configured")
	}

	file, err := os.Open(mediaPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header := http.Header{}
	if b.APIKey != "" {
		header.Set("Authorization", "Token "+b.APIKey)
	}

	conn, _, err := websocket.Dial(ctx, b.URL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTranscriptionFailure, "websocket dial failed")
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	readErr := make(chan error, 1)
	result := &Result{}
	go func() {
		readErr <- b.collect(ctx, conn, result)
	}()

	buf := make([]byte, streamChunkSize)
	for {
		n, rerr := file.Read(buf)
		if n > 0 {
			if werr := conn.Write(ctx, websocket.MessageBinary, buf[:n]); werr != nil {
				return nil, errors.Wrap(werr, errors.KindTranscriptionFailure, "sending audio chunk")
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return nil, errors.Wrap(err, errors.KindTranscriptionFailure, "closing audio stream")
	}

	select {
	case err := <-readErr:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return result, nil
}

// collect reads transcript events until the service closes the stream.
func (b *StreamBackend) collect(ctx context.Context, conn *websocket.Conn, result *Result) error {
	var parts []string
	var segments []Segment
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				result.Text = strings.Join(parts, " ")
				result.Segments = segments
				return nil
			}
			return errors.Wrap(err, errors.KindTranscriptionFailure, "reading transcript event")
		}

		var event streamEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		if strings.EqualFold(event.Type, "Error") {
			msg := strings.TrimSpace(event.Message)
			if msg == "" {
				msg = "streaming service returned an unknown error"
			}
			return errors.New(errors.KindTranscriptionFailure, msg)
		}
		if !event.IsFinal {
			continue
		}

		text := strings.TrimSpace(event.transcript())
		if text == "" {
			continue
		}
		parts = append(parts, text)
		segments = append(segments, Segment{
			Start: time.Duration(event.Start * float64(time.Second)),
			End:   time.Duration((event.Start + event.Duration) * float64(time.Second)),
			Text:  text,
		})
	}
}

type streamEvent struct {
	Type     string  `json:"type"`
	Message  string  `json:"message"`
	IsFinal  bool    `json:"is_final"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (e streamEvent) transcript() string {
	if len(e.Channel.Alternatives) > 0 {
		return e.Channel.Alternatives[0].Transcript
	}
	return ""
}
