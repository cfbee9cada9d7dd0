package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/vidscope/internal/types"
)

// RenderASS renders the whole transcript as an ASS script. Segments with word
// timings become karaoke lines; the speaker goes into the Name field.
func RenderASS(tr types.Transcript) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		words := collectWords(s)
		if len(words) == 0 {
			writeDialogue(&b, dur(s.Start), dur(s.End), s.Speaker, sanitizeASS(text))
			continue
		}
		for _, ln := range packWords(words) {
			var kb strings.Builder
			for _, w := range ln.Words {
				durCS := int((w.End - w.Start) / (10 * time.Millisecond))
				if durCS < 1 {
					durCS = 1
				}
				kb.WriteString(fmt.Sprintf("{\\k%d}%s ", durCS, w.Text))
			}
			writeDialogue(&b, ln.Start, ln.End, s.Speaker, strings.TrimSpace(kb.String()))
		}
	}
	return b.String()
}

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

func collectWords(s types.Segment) []wword {
	var out []wword
	for _, w := range s.Words {
		ws := dur(w.Start)
		we := dur(w.End)
		if we <= ws {
			continue
		}
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		out = append(out, wword{Start: ws, End: we, Text: sanitizeASS(text)})
	}
	return out
}

func packWords(words []wword) []line {
	var out []line
	cur := line{Start: words[0].Start}
	charBudget := 42
	wordBudget := 9
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.Words) >= wordBudget || nextLen > charBudget {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func writeDialogue(b *strings.Builder, start, end time.Duration, speaker, text string) {
	b.WriteString("Dialogue: 0,")
	b.WriteString(assTime(start))
	b.WriteString(",")
	b.WriteString(assTime(end))
	b.WriteString(",Default,")
	b.WriteString(sanitizeName(speaker))
	b.WriteString(",0,0,0,,")
	b.WriteString(text)
	b.WriteString("\n")
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default, Inter, 54, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 0,0,0,0,100,100,0,0,1,3,1,2, 80,80,60,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// Commas delimit ASS fields, so they cannot appear in Name.
func sanitizeName(s string) string {
	return strings.ReplaceAll(sanitizeASS(s), ",", " ")
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
