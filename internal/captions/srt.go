package captions

import (
	"fmt"
	"io"
	"math"
	"os"
)

// FormatTimestamp renders seconds as an SRT timestamp, HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int(math.Round(seconds * 1000))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WriteSRT emits one timed subtitle entry per chunk, in chunk order.
func WriteSRT(w io.Writer, chunks []Chunk) error {
	for i, c := range chunks {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteSRTFile writes the subtitle track for a request to path.
func WriteSRTFile(path string, chunks []Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSRT(f, chunks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
