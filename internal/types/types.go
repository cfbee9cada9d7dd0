package types

import (
	"strings"
	"time"
)

type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
}

type Word struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Word    string  `json:"word"`
	Speaker string  `json:"speaker,omitempty"`
}

// SpeakerTurn is a run of consecutive segments attributed to one speaker.
type SpeakerTurn struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Text joins the trimmed segment texts with single spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

func (t Transcript) HasSpeakers() bool {
	for _, s := range t.Segments {
		if s.Speaker != "" {
			return true
		}
	}
	return false
}

// SpeakerTurns merges consecutive labeled segments of the same speaker.
// Unlabeled segments are skipped.
func (t Transcript) SpeakerTurns() []SpeakerTurn {
	var out []SpeakerTurn
	for _, s := range t.Segments {
		txt := strings.TrimSpace(s.Text)
		if s.Speaker == "" || txt == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Speaker == s.Speaker {
			out[n-1].Text += " " + txt
			out[n-1].End = s.End
			continue
		}
		out = append(out, SpeakerTurn{Speaker: s.Speaker, Text: txt, Start: s.Start, End: s.End})
	}
	return out
}

// Lines renders the transcript for reading: consecutive segments of the same
// speaker are merged and prefixed with the label. Unlabeled segments keep their
// text without a prefix. Without any speakers it returns the plain text.
func (t Transcript) Lines() []string {
	if !t.HasSpeakers() {
		if txt := t.Text(); txt != "" {
			return []string{txt}
		}
		return nil
	}
	var (
		out     []string
		speaker string
		cur     []string
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		line := strings.Join(cur, " ")
		if speaker != "" {
			line = speaker + ": " + line
		}
		out = append(out, line)
		cur = nil
	}
	for _, s := range t.Segments {
		txt := strings.TrimSpace(s.Text)
		if txt == "" {
			continue
		}
		if len(cur) > 0 && s.Speaker != speaker {
			flush()
		}
		speaker = s.Speaker
		cur = append(cur, txt)
	}
	flush()
	return out
}

type ASROptions struct {
	// Language is an ISO 639-1 code or "auto".
	Language string
	Diarize  bool
}

type Moment struct {
	Start     time.Duration `json:"-"`
	End       time.Duration `json:"-"`
	StartSec  float64       `json:"start_sec"`
	EndSec    float64       `json:"end_sec"`
	Text      string        `json:"text"`
	InfoScore float64       `json:"info_score"`
	HookScore float64       `json:"hook_score"`
}

type Summary struct {
	Text      string   `json:"text"`
	KeyPoints []string `json:"key_points,omitempty"`
	Provider  string   `json:"provider"`
	Model     string   `json:"model"`
}

type Frame struct {
	Index int     `json:"index"`
	AtSec float64 `json:"at_sec"`
	Path  string  `json:"path"`
}

type Detection struct {
	FrameAtSec float64    `json:"frame_at_sec"`
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}

type SceneCaption struct {
	FrameAtSec float64 `json:"frame_at_sec"`
	Caption    string  `json:"caption"`
}

type AudioEvent struct {
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Capability string

const (
	CapabilityTranscription Capability = "transcription"
	CapabilitySummary       Capability = "summary"
	CapabilityObjects       Capability = "objects"
	CapabilityScenes        Capability = "scenes"
	CapabilityAudioEvents   Capability = "audio-events"
)

// Optional capabilities selectable with --with.
var OptionalCapabilities = []Capability{CapabilityObjects, CapabilityScenes, CapabilityAudioEvents}

func ParseCapability(s string) (Capability, bool) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	for _, o := range OptionalCapabilities {
		if c == o {
			return c, true
		}
	}
	return "", false
}

type Status string

const (
	StatusOK             Status = "ok"
	StatusCached         Status = "cached"
	StatusSkipped        Status = "skipped"
	StatusNotImplemented Status = "not_implemented"
	StatusFailed         Status = "failed"
)

type CapabilityStatus struct {
	Name   Capability `json:"name"`
	Status Status     `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

type Report struct {
	RunID        string             `json:"run_id"`
	Input        string             `json:"input"`
	CreatedAt    time.Time          `json:"created_at"`
	DurationSec  float64            `json:"duration_sec,omitempty"`
	Engine       string             `json:"engine"`
	Model        string             `json:"model"`
	Language     string             `json:"language"`
	Diarized     bool               `json:"diarized"`
	Text         string             `json:"text"`
	Transcript   Transcript         `json:"transcript"`
	SpeakerTurns []SpeakerTurn      `json:"speaker_turns,omitempty"`
	Moments      []Moment           `json:"key_moments,omitempty"`
	Summary      *Summary           `json:"summary,omitempty"`
	Objects      []Detection        `json:"objects,omitempty"`
	Scenes       []SceneCaption     `json:"scenes,omitempty"`
	AudioEvents  []AudioEvent       `json:"audio_events,omitempty"`
	Capabilities []CapabilityStatus `json:"capabilities"`
	Files        []string           `json:"files,omitempty"`
}
