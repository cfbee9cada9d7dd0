package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/vidscope/internal/types"
)

const framePattern = "frame_%05d.jpg"

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// ExtractFrames samples one JPEG every `every` into outDir.
func (a *Adapter) ExtractFrames(ctx context.Context, inPath, outDir string, every time.Duration) ([]types.Frame, error) {
	if every <= 0 {
		return nil, fmt.Errorf("ffmpeg extract frames: interval must be > 0")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-vf", "fps=1/"+fmtSeconds(every),
		"-q:v", "2",
		filepath.Join(outDir, framePattern),
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg extract frames: %w\n%s", err, string(b))
	}
	return listFrames(outDir, every)
}

func (a *Adapter) ProbeDuration(ctx context.Context, inPath string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// listFrames maps ffmpeg's 1-based frame files to timestamps. With fps=1/N the
// k-th output frame covers [(k-1)*N, k*N).
func listFrames(dir string, every time.Duration) ([]types.Frame, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]types.Frame, 0, len(matches))
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), "frame_"), ".jpg")
		n, err := strconv.Atoi(num)
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, types.Frame{
			Index: n - 1,
			AtSec: float64(n-1) * every.Seconds(),
			Path:  m,
		})
	}
	return out, nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
