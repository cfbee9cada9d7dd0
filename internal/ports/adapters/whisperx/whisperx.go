package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/types"
)

const (
	EngineName = "whisperx"

	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

type Config struct {
	// Bin may carry a launcher prefix, e.g. "uvx whisperx".
	Bin         string
	ModelType   string
	Device      string
	ComputeType string
	Threads     int
	HFToken     string
	Log         logrus.FieldLogger
}

type Adapter struct {
	bin         []string
	modelType   string
	device      string
	computeType string
	threads     int
	hfToken     string
	log         logrus.FieldLogger
}

func New(cfg Config) *Adapter {
	bin := strings.Fields(cfg.Bin)
	if len(bin) == 0 {
		bin = []string{"whisperx"}
	}
	model := cfg.ModelType
	if model == "" {
		model = "base"
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	device := resolveDevice(cfg.Device, hasCUDA)
	computeType := cfg.ComputeType
	if computeType == "" {
		computeType = defaultComputeType(device)
	}
	return &Adapter{
		bin:         bin,
		modelType:   model,
		device:      device,
		computeType: computeType,
		threads:     cfg.Threads,
		hfToken:     cfg.HFToken,
		log:         log,
	}
}

func (a *Adapter) Engine() string { return EngineName }

func (a *Adapter) Model() string { return a.modelType }

func (a *Adapter) Transcribe(ctx context.Context, wavPath, workDir string, opts types.ASROptions) (types.Transcript, error) {
	const op = "whisperx.Transcribe"

	if opts.Diarize && a.hfToken == "" {
		return types.Transcript{}, apperr.Config(op, nil, "HUGGING_FACE_TOKEN is required for diarization (set it in .env)")
	}
	if !opts.Diarize && a.hfToken == "" {
		a.log.Debug("no Hugging Face token configured; diarization models unavailable")
	}

	outDir := filepath.Join(workDir, "whisperx")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return types.Transcript{}, err
	}

	args := append(append([]string{}, a.bin[1:]...), a.buildArgs(wavPath, outDir, opts)...)
	a.log.WithFields(logrus.Fields{
		"model":        a.modelType,
		"device":       a.device,
		"compute_type": a.computeType,
		"diarize":      opts.Diarize,
	}).Info("running whisperx")

	cmd := exec.CommandContext(ctx, a.bin[0], args...)
	cmd.Env = a.env(os.Environ(), opts)
	b, err := cmd.CombinedOutput()
	if err != nil {
		out := redact(string(b), a.hfToken)
		return types.Transcript{}, apperr.Model(op, fmt.Errorf("%w\n%s", err, out), "whisperx failed")
	}

	name := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath)) + ".json"
	jb, err := os.ReadFile(filepath.Join(outDir, name))
	if err != nil {
		return types.Transcript{}, err
	}
	tr, err := parseOutput(jb)
	if err != nil {
		return types.Transcript{}, apperr.Model(op, err, "parse whisperx output")
	}
	if tr.Language == "" && opts.Language != "auto" {
		tr.Language = opts.Language
	}
	if opts.Diarize && !tr.HasSpeakers() {
		a.log.Warn("diarization returned no speaker labels")
	}
	return tr, nil
}

func (a *Adapter) buildArgs(wavPath, outDir string, opts types.ASROptions) []string {
	args := []string{
		wavPath,
		"--model", a.modelType,
		"--output_dir", outDir,
		"--output_format", "json",
		"--device", a.device,
		"--compute_type", a.computeType,
	}
	if opts.Language != "" && opts.Language != "auto" {
		args = append(args, "--language", opts.Language)
	}
	if a.threads > 0 {
		args = append(args, "--threads", strconv.Itoa(a.threads))
	}
	if opts.Diarize {
		args = append(args, "--diarize")
	}
	return args
}

// env passes the Hugging Face token to the child process so it stays off the
// command line.
func (a *Adapter) env(base []string, opts types.ASROptions) []string {
	if !opts.Diarize || a.hfToken == "" {
		return base
	}
	out := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if !strings.HasPrefix(kv, "HF_TOKEN=") {
			out = append(out, kv)
		}
	}
	return append(out, "HF_TOKEN="+a.hfToken)
}

func resolveDevice(device string, cuda func() bool) string {
	switch device {
	case DeviceCPU, DeviceCUDA:
		return device
	}
	if cuda() {
		return DeviceCUDA
	}
	return DeviceCPU
}

func defaultComputeType(device string) string {
	if device == DeviceCUDA {
		return "float32"
	}
	return "int8"
}

func hasCUDA() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

type output struct {
	Language string `json:"language"`
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Text    string  `json:"text"`
		Speaker string  `json:"speaker"`
		Words   []struct {
			Word    string   `json:"word"`
			Start   *float64 `json:"start"`
			End     *float64 `json:"end"`
			Speaker string   `json:"speaker"`
		} `json:"words"`
	} `json:"segments"`
}

func parseOutput(b []byte) (types.Transcript, error) {
	var raw output
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.Transcript{}, err
	}
	tr := types.Transcript{Language: raw.Language}
	for _, s := range raw.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		seg := types.Segment{Start: s.Start, End: s.End, Text: text, Speaker: s.Speaker}
		for _, w := range s.Words {
			// Numbers and symbols may come back unaligned, without timings.
			if w.Start == nil || w.End == nil {
				continue
			}
			seg.Words = append(seg.Words, types.Word{
				Start:   *w.Start,
				End:     *w.End,
				Word:    strings.TrimSpace(w.Word),
				Speaker: w.Speaker,
			})
		}
		tr.Segments = append(tr.Segments, seg)
	}
	return tr, nil
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "[REDACTED]")
}
