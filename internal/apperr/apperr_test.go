package apperr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := NotFound("pipeline.Validate", fs.ErrNotExist, "input not found")
	if got := err.Error(); got != "input not found: file does not exist" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected wrapped fs.ErrNotExist")
	}

	bare := Config("config.Load", nil, "HUGGING_FACE_TOKEN is required")
	if got := bare.Error(); got != "HUGGING_FACE_TOKEN is required" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestKindOfAndExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantCode int
	}{
		{"nil", nil, KindInternal, 0},
		{"plain", errors.New("boom"), KindInternal, 1},
		{"config", Config("op", nil, "bad"), KindConfig, 2},
		{"wrapped not found", fmt.Errorf("config: %w", NotFound("op", nil, "missing")), KindNotFound, 3},
		{"invalid input", InvalidInput("op", nil, "bad"), KindInvalidInput, 4},
		{"model", Model("op", errors.New("exit 1"), "whisper failed"), KindModel, 1},
		{"not implemented", NotImplemented("op", "later"), KindNotImplemented, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err != nil {
				if got := KindOf(tt.err); got != tt.wantKind {
					t.Fatalf("KindOf = %v, want %v", got, tt.wantKind)
				}
			}
			if got := ExitCode(tt.err); got != tt.wantCode {
				t.Fatalf("ExitCode = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestIsAndOpOf(t *testing.T) {
	err := fmt.Errorf("run: %w", NotImplemented("placeholder.DetectObjects", "object detection is not implemented"))
	if !Is(err, KindNotImplemented) {
		t.Fatalf("expected KindNotImplemented")
	}
	if Is(err, KindConfig) {
		t.Fatalf("did not expect KindConfig")
	}
	if Is(nil, KindInternal) {
		t.Fatalf("nil must not match any kind")
	}
	if got := OpOf(err); got != "placeholder.DetectObjects" {
		t.Fatalf("OpOf = %q", got)
	}
}
