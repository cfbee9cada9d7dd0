package ports

import (
	"context"
	"time"

	"github.com/forPelevin/vidscope/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error
	ExtractFrames(ctx context.Context, inPath, outDir string, every time.Duration) ([]types.Frame, error)
	ProbeDuration(ctx context.Context, inPath string) (time.Duration, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, workDir string, opts types.ASROptions) (types.Transcript, error)
	// Engine and Model identify the transcription for caching and reports.
	Engine() string
	Model() string
}

type TranscriptCache interface {
	Get(ctx context.Context, key string) (types.Transcript, bool, error)
	Put(ctx context.Context, key string, tr types.Transcript) error
}

type Summarizer interface {
	Summarize(ctx context.Context, tr types.Transcript, moments []types.Moment) (types.Summary, error)
}

type ObjectDetector interface {
	DetectObjects(ctx context.Context, frames []types.Frame) ([]types.Detection, error)
}

type SceneDescriber interface {
	DescribeScenes(ctx context.Context, frames []types.Frame) ([]types.SceneCaption, error)
}

type AudioEventDetector interface {
	DetectAudioEvents(ctx context.Context, wavPath string) ([]types.AudioEvent, error)
}

type ResultStore interface {
	Upload(ctx context.Context, runID string, files []string) ([]string, error)
}
