package transcribe

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Sidecar formats.
const (
	FormatText = "text"
	FormatSRT  = "srt"
	FormatJSON = "json"
)

func transcriptPath(mediaPath, format string) string {
	switch format {
	case FormatSRT:
		return mediaPath + ".srt"
	case FormatJSON:
		return mediaPath + ".transcript.json"
	default:
		return mediaPath + ".txt"
	}
}

func writeTranscript(path, format string, result *Result) error {
	var data []byte
	switch format {
	case FormatSRT:
		data = []byte(renderSRT(result))
	case FormatJSON:
		var err error
		data, err = renderJSON(result)
		if err != nil {
			return err
		}
	default:
		data = []byte(result.Text + "\n")
	}
	return os.WriteFile(path, data, 0o644)
}

// renderSRT emits SubRip cues from timed segments. With no segment timing
// the whole text becomes a single cue.
func renderSRT(result *Result) string {
	segments := result.Segments
	if len(segments) == 0 {
		segments = []Segment{{Start: 0, End: 5 * time.Second, Text: result.Text}}
	}

	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(seg.Start), srtTimestamp(seg.End), strings.TrimSpace(seg.Text))
	}
	return b.String()
}

func srtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

type jsonTranscript struct {
	Text     string        `json:"text"`
	Segments []jsonSegment `json:"segments,omitempty"`
}

type jsonSegment struct {
	Start float64 `json:"start_seconds"`
	End   float64 `json:"end_seconds"`
	Text  string  `json:"text"`
}

func renderJSON(result *Result) ([]byte, error) {
	out := jsonTranscript{Text: result.Text}
	for _, seg := range result.Segments {
		out.Segments = append(out.Segments, jsonSegment{
			Start: seg.Start.Seconds(),
			End:   seg.End.Seconds(),
			Text:  seg.Text,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
