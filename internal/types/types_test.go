package types

import (
	"strings"
	"testing"
)

func TestTranscriptText(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{Text: "  Hello there. "},
		{Text: ""},
		{Text: "General Kenobi!"},
	}}
	if got := tr.Text(); got != "Hello there. General Kenobi!" {
		t.Fatalf("unexpected text: %q", got)
	}
	if (Transcript{}).Text() != "" {
		t.Fatalf("empty transcript must have empty text")
	}
}

func TestSpeakerTurns(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{Start: 0, End: 1, Text: "hi", Speaker: "SPEAKER_00"},
		{Start: 1, End: 2, Text: "how are you", Speaker: "SPEAKER_00"},
		{Start: 2, End: 3, Text: "fine", Speaker: "SPEAKER_01"},
		{Start: 3, End: 4, Text: "no label"},
		{Start: 4, End: 5, Text: "and you?", Speaker: "SPEAKER_01"},
		{Start: 5, End: 6, Text: "good", Speaker: "SPEAKER_00"},
	}}
	if !tr.HasSpeakers() {
		t.Fatalf("expected speakers")
	}

	got := tr.SpeakerTurns()
	want := []SpeakerTurn{
		{Speaker: "SPEAKER_00", Text: "hi how are you", Start: 0, End: 2},
		{Speaker: "SPEAKER_01", Text: "fine and you?", Start: 2, End: 5},
		{Speaker: "SPEAKER_00", Text: "good", Start: 5, End: 6},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d turns, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("turn %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSpeakerTurns_NoSpeakers(t *testing.T) {
	tr := Transcript{Segments: []Segment{{Text: "plain"}}}
	if tr.HasSpeakers() {
		t.Fatalf("did not expect speakers")
	}
	if turns := tr.SpeakerTurns(); len(turns) != 0 {
		t.Fatalf("expected no turns, got %+v", turns)
	}
}

func TestLines_KeepsUnlabeledSegments(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{Text: "hi", Speaker: "SPEAKER_00"},
		{Text: "how are you", Speaker: "SPEAKER_00"},
		{Text: "no label"},
		{Text: "still none"},
		{Text: " "},
		{Text: "fine", Speaker: "SPEAKER_01"},
	}}
	got := strings.Join(tr.Lines(), "\n")
	want := "SPEAKER_00: hi how are you\nno label still none\nSPEAKER_01: fine"
	if got != want {
		t.Fatalf("unexpected lines:\n%s\nwant:\n%s", got, want)
	}

	plain := Transcript{Segments: []Segment{{Text: "one"}, {Text: "two"}}}
	if got := plain.Lines(); len(got) != 1 || got[0] != "one two" {
		t.Fatalf("unexpected plain lines: %q", got)
	}
	if got := (Transcript{}).Lines(); len(got) != 0 {
		t.Fatalf("expected no lines, got %q", got)
	}
}

func TestParseCapability(t *testing.T) {
	tests := map[string]Capability{
		"objects":       CapabilityObjects,
		" Scenes ":      CapabilityScenes,
		"audio-events":  CapabilityAudioEvents,
		"transcription": "",
		"faces":         "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, ok := ParseCapability(in)
			if ok != (want != "") || got != want {
				t.Fatalf("ParseCapability(%q) = %q, %v", in, got, ok)
			}
		})
	}
}
