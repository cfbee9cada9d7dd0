package whisperx

import (
	"context"
	"strings"
	"testing"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/logging"
	"github.com/forPelevin/vidscope/internal/types"
)

const sampleOutput = `{
  "language": "en",
  "segments": [
    {"start": 0.0, "end": 2.1, "text": " Welcome back.", "speaker": "SPEAKER_00",
     "words": [
       {"word": "Welcome", "start": 0.1, "end": 0.6, "score": 0.9, "speaker": "SPEAKER_00"},
       {"word": "back.", "start": 0.7, "end": 1.0, "score": 0.8, "speaker": "SPEAKER_00"}
     ]},
    {"start": 2.1, "end": 4.0, "text": " Thanks, 2024 was great.", "speaker": "SPEAKER_01",
     "words": [
       {"word": "Thanks,", "start": 2.2, "end": 2.6, "speaker": "SPEAKER_01"},
       {"word": "2024"},
       {"word": "was", "start": 3.0, "end": 3.2, "speaker": "SPEAKER_01"}
     ]},
    {"start": 4.0, "end": 4.5, "text": "  "}
  ]
}`

func TestParseOutput(t *testing.T) {
	tr, err := parseOutput([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tr.Language != "en" || len(tr.Segments) != 2 {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	if tr.Segments[0].Speaker != "SPEAKER_00" || tr.Segments[0].Text != "Welcome back." {
		t.Fatalf("unexpected first segment %+v", tr.Segments[0])
	}
	if len(tr.Segments[1].Words) != 2 {
		t.Fatalf("expected unaligned word to be skipped, got %+v", tr.Segments[1].Words)
	}
	turns := tr.SpeakerTurns()
	if len(turns) != 2 || turns[1].Speaker != "SPEAKER_01" {
		t.Fatalf("unexpected speaker turns %+v", turns)
	}
}

func TestBuildArgs(t *testing.T) {
	a := New(Config{ModelType: "small", Device: DeviceCPU, HFToken: "hf_secret", Threads: 2, Log: logging.Discard()})

	args := strings.Join(a.buildArgs("audio.wav", "out", types.ASROptions{Language: "de", Diarize: true}), " ")
	for _, want := range []string{
		"audio.wav",
		"--model small",
		"--output_format json",
		"--device cpu",
		"--compute_type int8",
		"--language de",
		"--threads 2",
		"--diarize",
	} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected args to contain %q, got %q", want, args)
		}
	}

	if strings.Contains(args, "hf_secret") {
		t.Fatalf("token must not be passed as an argument: %q", args)
	}

	args = strings.Join(a.buildArgs("audio.wav", "out", types.ASROptions{Language: "auto"}), " ")
	if strings.Contains(args, "--language") || strings.Contains(args, "--diarize") {
		t.Fatalf("unexpected args for auto language without diarization: %q", args)
	}
}

func TestEnv_TokenOnlyWhenDiarizing(t *testing.T) {
	a := New(Config{ModelType: "small", Device: DeviceCPU, HFToken: "hf_secret", Log: logging.Discard()})
	base := []string{"PATH=/usr/bin", "HF_TOKEN=stale"}

	env := a.env(base, types.ASROptions{Diarize: true})
	if strings.Join(env, " ") != "PATH=/usr/bin HF_TOKEN=hf_secret" {
		t.Fatalf("unexpected env: %v", env)
	}

	env = a.env(base, types.ASROptions{})
	if len(env) != 2 || env[1] != "HF_TOKEN=stale" {
		t.Fatalf("env must be unchanged without diarization: %v", env)
	}
}

func TestResolveDeviceAndComputeType(t *testing.T) {
	yes := func() bool { return true }
	no := func() bool { return false }

	tests := []struct {
		in      string
		cuda    func() bool
		want    string
		compute string
	}{
		{"auto", yes, DeviceCUDA, "float32"},
		{"auto", no, DeviceCPU, "int8"},
		{"", no, DeviceCPU, "int8"},
		{"cpu", yes, DeviceCPU, "int8"},
		{"cuda", no, DeviceCUDA, "float32"},
	}
	for _, tt := range tests {
		got := resolveDevice(tt.in, tt.cuda)
		if got != tt.want {
			t.Fatalf("resolveDevice(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if ct := defaultComputeType(got); ct != tt.compute {
			t.Fatalf("defaultComputeType(%q) = %q, want %q", got, ct, tt.compute)
		}
	}
}

func TestTranscribe_DiarizeWithoutToken(t *testing.T) {
	a := New(Config{Bin: "uvx whisperx", Device: DeviceCPU, Log: logging.Discard()})
	if a.bin[0] != "uvx" || a.bin[1] != "whisperx" {
		t.Fatalf("unexpected launcher %v", a.bin)
	}
	_, err := a.Transcribe(context.Background(), "a.wav", t.TempDir(), types.ASROptions{Diarize: true})
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if !strings.Contains(err.Error(), "HUGGING_FACE_TOKEN") {
		t.Fatalf("expected token hint in error, got %q", err.Error())
	}
}

func TestRedact(t *testing.T) {
	got := redact("401 for token hf_abc on model", "hf_abc")
	if strings.Contains(got, "hf_abc") || !strings.Contains(got, "[REDACTED]") {
		t.Fatalf("token not redacted: %q", got)
	}
	if redact("plain", "") != "plain" {
		t.Fatalf("empty token must not change output")
	}
}
