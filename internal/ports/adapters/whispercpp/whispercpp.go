package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/types"
)

const EngineName = "whispercpp"

type Config struct {
	Bin string
	// ModelType is a size name such as "base" or a path to a ggml model file.
	ModelType string
	ModelDir  string
	Threads   int
}

type Adapter struct {
	bin       string
	modelType string
	model     string
	threads   int
}

func New(cfg Config) *Adapter {
	bin := cfg.Bin
	if bin == "" {
		bin = "whisper-cli"
	}
	return &Adapter{
		bin:       bin,
		modelType: cfg.ModelType,
		model:     ResolveModelPath(cfg.ModelType, cfg.ModelDir),
		threads:   cfg.Threads,
	}
}

func (a *Adapter) Engine() string { return EngineName }

func (a *Adapter) Model() string { return a.modelType }

// ResolveModelPath maps a size name to <dir>/ggml-<name>.bin and leaves paths as is.
func ResolveModelPath(modelType, dir string) string {
	if modelType == "" {
		modelType = "base"
	}
	if strings.ContainsRune(modelType, filepath.Separator) || strings.ContainsRune(modelType, '/') || filepath.Ext(modelType) == ".bin" {
		return modelType
	}
	return filepath.Join(dir, "ggml-"+modelType+".bin")
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, workDir string, opts types.ASROptions) (types.Transcript, error) {
	const op = "whispercpp.Transcribe"

	if opts.Diarize {
		return types.Transcript{}, apperr.Config(op, nil, "whisper.cpp does not support speaker diarization; use --engine whisperx")
	}
	if _, err := os.Stat(a.model); err != nil {
		return types.Transcript{}, apperr.NotFound(op, err, fmt.Sprintf("whisper model %q not found", a.modelType))
	}

	outPrefix := filepath.Join(workDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-ojf",
		"-of", outPrefix,
	}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}
	if a.threads > 0 {
		args = append(args, "-t", strconv.Itoa(a.threads))
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, apperr.Model(op, fmt.Errorf("%w\n%s", err, string(b)), "whisper.cpp failed")
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	tr, err := parseOutput(jb)
	if err != nil {
		return types.Transcript{}, apperr.Model(op, err, "parse whisper.cpp output")
	}
	if tr.Language == "" && opts.Language != "auto" {
		tr.Language = opts.Language
	}
	return tr, nil
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets offsets `json:"offsets"`
		Text    string  `json:"text"`
		Tokens  []struct {
			Text    string  `json:"text"`
			Offsets offsets `json:"offsets"`
		} `json:"tokens"`
	} `json:"transcription"`
}

type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

func parseOutput(b []byte) (types.Transcript, error) {
	var raw output
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.Transcript{}, err
	}
	tr := types.Transcript{Language: raw.Result.Language}
	for _, e := range raw.Transcription {
		seg := types.Segment{
			Start: msToSec(e.Offsets.From),
			End:   msToSec(e.Offsets.To),
			Text:  strings.TrimSpace(e.Text),
		}
		for _, tok := range e.Tokens {
			if isSpecialToken(tok.Text) || tok.Text == "" {
				continue
			}
			start, end := msToSec(tok.Offsets.From), msToSec(tok.Offsets.To)
			// Sub-word tokens without a leading space continue the previous word.
			if n := len(seg.Words); n > 0 && !strings.HasPrefix(tok.Text, " ") {
				seg.Words[n-1].Word += tok.Text
				if end > seg.Words[n-1].End {
					seg.Words[n-1].End = end
				}
				continue
			}
			seg.Words = append(seg.Words, types.Word{Start: start, End: end, Word: tok.Text})
		}
		for i := range seg.Words {
			seg.Words[i].Word = strings.TrimSpace(seg.Words[i].Word)
		}
		if seg.Text == "" {
			continue
		}
		tr.Segments = append(tr.Segments, seg)
	}
	return tr, nil
}

func isSpecialToken(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "[_") && strings.HasSuffix(s, "]")
}

func msToSec(ms int64) float64 { return float64(ms) / 1000 }
