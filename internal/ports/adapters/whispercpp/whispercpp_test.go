package whispercpp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/types"
)

const sampleOutput = `{
  "result": {"language": "en"},
  "transcription": [
    {
      "timestamps": {"from": "00:00:00,000", "to": "00:00:02,500"},
      "offsets": {"from": 0, "to": 2500},
      "text": " Hello world.",
      "tokens": [
        {"text": "[_BEG_]", "offsets": {"from": 0, "to": 0}},
        {"text": " Hello", "offsets": {"from": 0, "to": 800}},
        {"text": " wor", "offsets": {"from": 900, "to": 1300}},
        {"text": "ld.", "offsets": {"from": 1300, "to": 1700}},
        {"text": "[_TT_125]", "offsets": {"from": 2500, "to": 2500}}
      ]
    },
    {
      "offsets": {"from": 2500, "to": 3000},
      "text": "   ",
      "tokens": []
    },
    {
      "offsets": {"from": 3000, "to": 5000},
      "text": " Step two.",
      "tokens": []
    }
  ]
}`

func TestParseOutput(t *testing.T) {
	tr, err := parseOutput([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tr.Language != "en" {
		t.Fatalf("unexpected language %q", tr.Language)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("expected blank segment to be dropped, got %d segments", len(tr.Segments))
	}

	first := tr.Segments[0]
	if first.Start != 0 || first.End != 2.5 || first.Text != "Hello world." {
		t.Fatalf("unexpected first segment %+v", first)
	}
	if len(first.Words) != 2 {
		t.Fatalf("expected 2 words, got %+v", first.Words)
	}
	if first.Words[1].Word != "world." || first.Words[1].Start != 0.9 || first.Words[1].End != 1.7 {
		t.Fatalf("unexpected merged word %+v", first.Words[1])
	}
	if tr.Segments[1].Start != 3 || tr.Segments[1].Text != "Step two." {
		t.Fatalf("unexpected second segment %+v", tr.Segments[1])
	}
}

func TestParseOutput_Invalid(t *testing.T) {
	if _, err := parseOutput([]byte("not json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResolveModelPath(t *testing.T) {
	tests := []struct {
		modelType string
		dir       string
		want      string
	}{
		{"base", ".cache/models", filepath.Join(".cache/models", "ggml-base.bin")},
		{"", "models", filepath.Join("models", "ggml-base.bin")},
		{"large-v3", "m", filepath.Join("m", "ggml-large-v3.bin")},
		{"custom.bin", "m", "custom.bin"},
		{"/opt/models/ggml-small.bin", "m", "/opt/models/ggml-small.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.modelType, func(t *testing.T) {
			if got := ResolveModelPath(tt.modelType, tt.dir); got != tt.want {
				t.Fatalf("ResolveModelPath(%q, %q) = %q, want %q", tt.modelType, tt.dir, got, tt.want)
			}
		})
	}
}

func TestTranscribe_FailsBeforeRunning(t *testing.T) {
	a := New(Config{Bin: "does-not-matter", ModelType: "tiny", ModelDir: t.TempDir()})
	if a.Engine() != EngineName || a.Model() != "tiny" {
		t.Fatalf("unexpected identity %s/%s", a.Engine(), a.Model())
	}

	_, err := a.Transcribe(context.Background(), "in.wav", t.TempDir(), types.ASROptions{Language: "en"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error for missing model, got %v", err)
	}

	_, err = a.Transcribe(context.Background(), "in.wav", t.TempDir(), types.ASROptions{Diarize: true})
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected config error for diarization, got %v", err)
	}
}
