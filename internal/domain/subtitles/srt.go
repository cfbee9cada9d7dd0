package subtitles

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/vidscope/internal/types"
)

// RenderSRT renders one cue per non-empty segment, numbered from 1.
func RenderSRT(tr types.Transcript) string {
	var b strings.Builder
	n := 0
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		n++
		if n > 1 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(n))
		b.WriteString("\n")
		b.WriteString(srtTime(dur(s.Start)))
		b.WriteString(" --> ")
		b.WriteString(srtTime(dur(s.End)))
		b.WriteString("\n")
		b.WriteString(withSpeaker(s.Speaker, text))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderText renders "[hh:mm:ss.mmm --> hh:mm:ss.mmm] SPEAKER: text" lines.
func RenderText(tr types.Transcript) string {
	var b strings.Builder
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s --> %s] %s\n", clockTime(dur(s.Start)), clockTime(dur(s.End)), withSpeaker(s.Speaker, text))
	}
	return b.String()
}

func withSpeaker(speaker, text string) string {
	if speaker == "" {
		return text
	}
	return speaker + ": " + text
}

func srtTime(d time.Duration) string {
	return strings.Replace(clockTime(d), ".", ",", 1)
}

func clockTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, d/time.Millisecond)
}
