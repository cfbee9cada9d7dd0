package moments

import (
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/vidscope/internal/types"
)

const (
	DefaultMinWindow = 5 * time.Second
	DefaultMaxWindow = 30 * time.Second
	DefaultCount     = 5

	minGap = 2 * time.Second
)

// Key returns the n best non-overlapping windows of tr, ordered by start time.
func Key(tr types.Transcript, n int) []types.Moment {
	return Top(BuildWindows(tr, DefaultMinWindow, DefaultMaxWindow), n)
}

// BuildWindows creates scored windows from the transcript.
// Word timings are preferred; segments are the fallback.
func BuildWindows(tr types.Transcript, minWin, maxWin time.Duration) []types.Moment {
	if minWin <= 0 {
		minWin = time.Second
	}
	if maxWin <= 0 || maxWin < minWin {
		return nil
	}

	segs := tr.Segments
	if len(segs) == 0 {
		return nil
	}

	words := collectAllWords(tr)
	if len(words) >= 2 {
		if out := buildFromWords(words, minWin, maxWin); len(out) > 0 {
			return out
		}
	}

	var out []types.Moment
	for i := 0; i < len(segs); i++ {
		start := dur(segs[i].Start)
		var parts []string
		for j := i; j < len(segs); j++ {
			end := dur(segs[j].End)
			win := end - start
			if win > maxWin {
				break
			}
			if strings.TrimSpace(segs[j].Text) != "" {
				parts = append(parts, strings.TrimSpace(segs[j].Text))
			}
			if win < minWin {
				continue
			}
			text := strings.TrimSpace(strings.Join(parts, " "))
			if text == "" {
				continue
			}
			out = append(out, newMoment(start, end, text))
		}
	}
	return out
}

// Top picks the n highest scoring windows that do not overlap (with a small
// gap), returned in timeline order.
func Top(cands []types.Moment, n int) []types.Moment {
	if len(cands) == 0 || n <= 0 {
		return nil
	}

	best := make([]types.Moment, len(cands))
	copy(best, cands)
	sort.SliceStable(best, func(i, j int) bool {
		s1 := best[i].InfoScore + best[i].HookScore
		s2 := best[j].InfoScore + best[j].HookScore
		if s1 == s2 {
			return best[i].Start < best[j].Start
		}
		return s1 > s2
	})

	out := make([]types.Moment, 0, n)
	for _, c := range best {
		if len(out) >= n {
			break
		}
		if c.InfoScore+c.HookScore <= 0 {
			break
		}
		if !isDistinct(out, c.Start, c.End, minGap) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

type timedWord struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

func collectAllWords(tr types.Transcript) []timedWord {
	var out []timedWord
	for _, s := range tr.Segments {
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
			out = append(out, timedWord{Start: ws, End: we, Text: text})
		}
	}
	return out
}

func buildFromWords(words []timedWord, minWin, maxWin time.Duration) []types.Moment {
	// Caps keep runtime predictable on long transcripts.
	const (
		maxWindows    = 500
		maxWordsInWin = 240
		maxStartCount = 140
		endStride     = 4
	)

	startStride := 1
	if len(words) > maxStartCount {
		startStride = (len(words) + maxStartCount - 1) / maxStartCount
	}
	startIdxs := make([]int, 0, len(words)/startStride+2)
	for i := 0; i < len(words)-1; i += startStride {
		startIdxs = append(startIdxs, i)
	}
	lastStart := len(words) - 2
	// Keep a near-tail start so the end of the video is always covered.
	if lastStart >= 0 && (len(startIdxs) == 0 || startIdxs[len(startIdxs)-1] != lastStart) {
		startIdxs = append(startIdxs, lastStart)
	}

	var out []types.Moment
	for _, i := range startIdxs {
		start := words[i].Start

		parts := make([]string, 0, maxWordsInWin)
		for j := i; j < len(words) && j-i <= maxWordsInWin; j++ {
			parts = append(parts, words[j].Text)
			if j == i {
				continue
			}
			if (j-i)%endStride != 0 && j != i+1 {
				continue
			}

			end := words[j].End
			win := end - start
			if win > maxWin {
				break
			}
			if win < minWin {
				continue
			}

			text := strings.TrimSpace(strings.Join(parts, " "))
			if text == "" {
				continue
			}
			out = append(out, newMoment(start, end, text))
			if len(out) >= maxWindows {
				return out
			}
		}
	}
	return out
}

func newMoment(start, end time.Duration, text string) types.Moment {
	info, hook := Score(text)
	return types.Moment{
		Start:     start,
		End:       end,
		StartSec:  start.Seconds(),
		EndSec:    end.Seconds(),
		Text:      text,
		InfoScore: info,
		HookScore: hook,
	}
}

func isDistinct(existing []types.Moment, st, en, gap time.Duration) bool {
	for _, e := range existing {
		if st < e.End+gap && en > e.Start-gap {
			return false
		}
	}
	return true
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
