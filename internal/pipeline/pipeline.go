package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/config"
	"github.com/forPelevin/vidscope/internal/domain/subtitles"
	"github.com/forPelevin/vidscope/internal/ports"
	"github.com/forPelevin/vidscope/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/vidscope/internal/ports/adapters/gemini"
	"github.com/forPelevin/vidscope/internal/ports/adapters/ollama"
	"github.com/forPelevin/vidscope/internal/ports/adapters/openrouter"
	"github.com/forPelevin/vidscope/internal/ports/adapters/placeholder"
	"github.com/forPelevin/vidscope/internal/ports/adapters/s3store"
	"github.com/forPelevin/vidscope/internal/ports/adapters/sqlitecache"
	"github.com/forPelevin/vidscope/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/vidscope/internal/ports/adapters/whisperx"
	"github.com/forPelevin/vidscope/internal/types"
	"github.com/forPelevin/vidscope/internal/usecase"
)

const (
	FormatJSON = "json"
	FormatSRT  = "srt"
	FormatTXT  = "txt"
	FormatASS  = "ass"

	ReportFile = "report.json"
)

var (
	Formats        = []string{FormatJSON, FormatSRT, FormatTXT, FormatASS}
	DefaultFormats = []string{FormatSRT, FormatTXT}
)

type Config struct {
	Input string
	// Language, Engine, Model and OutDir fall back to Settings when empty.
	Language string
	Engine   string
	Model    string
	Diarize  bool

	Summarize    bool
	Capabilities []types.Capability
	Formats      []string
	OutDir       string
	NoCache      bool

	Settings config.Settings
	Log      logrus.FieldLogger
}

type Result struct {
	RunDir   string
	Report   types.Report
	Uploaded []string
}

// resolved fills request fields from Settings.
func (c Config) resolved() Config {
	s := c.Settings
	if c.Language == "" {
		c.Language = s.Transcription.DefaultLanguage
	}
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	if c.Engine == "" {
		c.Engine = s.Transcription.Engine
		if c.Diarize {
			c.Engine = config.EngineWhisperX
		}
	}
	if c.Model == "" {
		c.Model = s.Models.WhisperModelType
	}
	if c.OutDir == "" {
		c.OutDir = s.Paths.OutDir
	}
	if len(c.Formats) == 0 {
		c.Formats = DefaultFormats
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	return c
}

// Validate checks the request before any model runs.
func (c Config) Validate() error {
	const op = "pipeline.Validate"
	c = c.resolved()

	if strings.TrimSpace(c.Input) == "" {
		return apperr.InvalidInput(op, nil, "input is empty")
	}
	fi, err := os.Stat(c.Input)
	if err != nil {
		if os.IsNotExist(err) {
			return apperr.NotFound(op, nil, fmt.Sprintf("input not found: %s", c.Input))
		}
		return apperr.InvalidInput(op, err, "stat input")
	}
	if fi.IsDir() {
		return apperr.InvalidInput(op, nil, fmt.Sprintf("input is a directory: %s", c.Input))
	}
	return c.ValidateRequest()
}

// ValidateRequest checks everything except the input path: flags, credentials
// and the local whisper model. Watch mode calls it before any file arrives.
func (c Config) ValidateRequest() error {
	const op = "pipeline.ValidateRequest"
	c = c.resolved()

	if err := config.ValidateLanguage(c.Language); err != nil {
		return apperr.InvalidInput(op, err, "transcription language")
	}
	if err := config.ValidateEngine(c.Engine); err != nil {
		return apperr.InvalidInput(op, err, "engine")
	}
	if c.Diarize {
		if c.Engine != config.EngineWhisperX {
			return apperr.InvalidInput(op, nil, "diarization requires --engine whisperx")
		}
		if c.Settings.HuggingFaceToken == "" {
			return apperr.Config(op, nil, "HUGGING_FACE_TOKEN is required for diarization (set it in .env)")
		}
	}

	for _, f := range c.Formats {
		if !isFormat(f) {
			return apperr.InvalidInput(op, nil, fmt.Sprintf("unknown output format %q (want %s)", f, strings.Join(Formats, ", ")))
		}
	}

	if c.Summarize {
		sum := c.Settings.Summary
		switch sum.Provider {
		case config.ProviderOpenRouter:
			if c.Settings.OpenRouterAPIKey == "" {
				return apperr.Config(op, nil, "OPENROUTER_API_KEY is required for the openrouter summary provider (set it in .env)")
			}
			if err := openrouter.ValidateBaseURL(sum.OpenRouterBaseURL, sum.OpenRouterAllowedHosts); err != nil {
				return err
			}
		case config.ProviderGemini:
			if c.Settings.GeminiAPIKey == "" {
				return apperr.Config(op, nil, "GEMINI_API_KEY is required for the gemini summary provider (set it in .env)")
			}
		}
	}

	if c.Engine == config.EngineWhisperCPP {
		model := whispercpp.ResolveModelPath(c.Model, c.Settings.Models.WhisperModelDir)
		if _, err := os.Stat(model); err != nil {
			return apperr.NotFound(op, nil, fmt.Sprintf("whisper model %q not found at %s", c.Model, model))
		}
	}
	return nil
}

// ParseCapabilities maps --with values to optional capabilities.
func ParseCapabilities(names []string) ([]types.Capability, error) {
	var out []types.Capability
	seen := map[types.Capability]bool{}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		c, ok := types.ParseCapability(n)
		if !ok {
			return nil, apperr.InvalidInput("pipeline.ParseCapabilities", nil,
				fmt.Sprintf("unknown capability %q (want objects, scenes or audio-events)", n))
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	cfg = cfg.resolved()
	s := cfg.Settings
	log := cfg.Log.WithField("input", filepath.Base(cfg.Input))

	// adapters
	v := ffmpeg.New(s.Video.FFmpegPath, s.Video.FFprobePath)
	deps := usecase.Deps{
		Video:       v,
		ASR:         newASR(cfg),
		Objects:     placeholder.ObjectDetector{ModelPath: s.Models.YoloModelPath},
		Scenes:      placeholder.SceneDescriber{ModelPath: s.Models.BlipModelPath},
		AudioEvents: placeholder.AudioEventDetector{ModelPath: s.Models.PannsModelPath},
		Log:         log,
	}
	if cfg.Summarize {
		sum, err := newSummarizer(ctx, cfg)
		if err != nil {
			return Result{}, err
		}
		deps.Summarizer = sum
	}

	var cacheKey string
	if !cfg.NoCache {
		cache, key, err := openCache(cfg, deps.ASR)
		if err != nil {
			log.WithError(err).Warn("Transcript cache disabled")
		} else {
			defer cache.Close()
			deps.Cache = cache
			cacheKey = key
		}
	}

	runID := uuid.New().String()
	workDir := workDirFor(s.Paths.CacheDir, cfg.Input, runID)
	log.Debug("Preparing workspace")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, err
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.WithError(err).Warn("Could not remove workspace")
		}
	}()

	now := time.Now().UTC()
	runDir := buildRunOutDir(cfg.OutDir, cfg.Input, now)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{"work_dir": workDir, "run_dir": runDir}).Info("Starting analysis")

	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		InputPath:     cfg.Input,
		Language:      cfg.Language,
		Diarize:       cfg.Diarize,
		CacheKey:      cacheKey,
		Summarize:     cfg.Summarize,
		Capabilities:  cfg.Capabilities,
		FrameInterval: s.FrameInterval(),
		WorkDir:       workDir,
	})
	if err != nil {
		return Result{}, err
	}

	rep := res.Report
	rep.RunID = runID
	rep.CreatedAt = now
	files, err := writeOutputs(runDir, &rep, cfg.Formats)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{"run_dir": runDir, "files": len(files)}).Info("Report written")

	out := Result{RunDir: runDir, Report: rep}
	if s.Storage.S3Bucket != "" {
		store, err := newStore(ctx, s)
		if err != nil {
			return out, err
		}
		keys, err := store.Upload(ctx, rep.RunID, files)
		if err != nil {
			return out, err
		}
		out.Uploaded = keys
		log.WithFields(logrus.Fields{"bucket": s.Storage.S3Bucket, "objects": len(keys)}).Info("Uploaded results")
	}
	return out, nil
}

func newASR(cfg Config) ports.ASR {
	s := cfg.Settings
	if cfg.Engine == config.EngineWhisperX {
		return whisperx.New(whisperx.Config{
			Bin:         s.Models.WhisperXBin,
			ModelType:   cfg.Model,
			Device:      s.Transcription.Device,
			ComputeType: s.Transcription.ComputeType,
			Threads:     s.Transcription.Threads,
			HFToken:     s.HuggingFaceToken,
			Log:         cfg.Log,
		})
	}
	return whispercpp.New(whispercpp.Config{
		Bin:       s.Models.WhisperBin,
		ModelType: cfg.Model,
		ModelDir:  s.Models.WhisperModelDir,
		Threads:   s.Transcription.Threads,
	})
}

func newSummarizer(ctx context.Context, cfg Config) (ports.Summarizer, error) {
	s := cfg.Settings
	switch s.Summary.Provider {
	case config.ProviderOpenRouter:
		return openrouter.New(s.OpenRouterAPIKey, s.Summary.OpenRouterModel, s.Summary.OpenRouterBaseURL), nil
	case config.ProviderGemini:
		g, err := gemini.New(ctx, gemini.Config{APIKey: s.GeminiAPIKey, Model: s.Summary.GeminiModel})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return ollama.New(ollama.Config{
			Host:              s.Summary.OllamaHost,
			Model:             s.Summary.OllamaModel,
			RequestsPerMinute: s.Summary.RequestsPerMinute,
			Log:               cfg.Log,
		}), nil
	}
}

func openCache(cfg Config, asr ports.ASR) (*sqlitecache.Cache, string, error) {
	sum, err := sqlitecache.HashFile(cfg.Input)
	if err != nil {
		return nil, "", err
	}
	c, err := sqlitecache.Open(filepath.Join(cfg.Settings.Paths.CacheDir, sqlitecache.DefaultFile))
	if err != nil {
		return nil, "", err
	}
	key := sqlitecache.Key(sqlitecache.KeyParts{
		ContentHash: sum,
		Engine:      asr.Engine(),
		Model:       asr.Model(),
		Language:    cfg.Language,
		Diarize:     cfg.Diarize,
	})
	return c, key, nil
}

// writeOutputs writes the transcript exports and report.json, recording the
// exported names in rep.Files. It returns the written paths.
func writeOutputs(runDir string, rep *types.Report, formats []string) ([]string, error) {
	var paths []string
	for _, f := range formats {
		name := "transcript." + f
		var b []byte
		switch f {
		case FormatJSON:
			var err error
			if b, err = json.MarshalIndent(rep.Transcript, "", "  "); err != nil {
				return nil, fmt.Errorf("marshal transcript: %w", err)
			}
		case FormatSRT:
			b = []byte(subtitles.RenderSRT(rep.Transcript))
		case FormatTXT:
			b = []byte(subtitles.RenderText(rep.Transcript))
		case FormatASS:
			b = []byte(subtitles.RenderASS(rep.Transcript))
		default:
			return nil, apperr.InvalidInput("pipeline.writeOutputs", nil, fmt.Sprintf("unknown output format %q", f))
		}
		p := filepath.Join(runDir, name)
		if err := os.WriteFile(p, b, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
		rep.Files = append(rep.Files, name)
	}

	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	reportPath := filepath.Join(runDir, ReportFile)
	if err := os.WriteFile(reportPath, b, 0o644); err != nil {
		return nil, err
	}
	return append([]string{reportPath}, paths...), nil
}

func newStore(ctx context.Context, s config.Settings) (ports.ResultStore, error) {
	st, err := s3store.New(ctx, s3store.Config{
		Bucket:    s.Storage.S3Bucket,
		Region:    s.Storage.S3Region,
		Endpoint:  s.Storage.S3Endpoint,
		Prefix:    s.Storage.S3Prefix,
		AccessKey: s.S3AccessKey,
		SecretKey: s.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func isFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}

// workDirFor returns a per-run directory for intermediate audio and frames, so
// concurrent runs on the same input never share files.
func workDirFor(cacheDir, input, runID string) string {
	return filepath.Join(cacheDir, "runs", hash(input)+"-"+runID)
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.VideoTool          = (*ffmpeg.Adapter)(nil)
	_ ports.ASR                = (*whispercpp.Adapter)(nil)
	_ ports.ASR                = (*whisperx.Adapter)(nil)
	_ ports.TranscriptCache    = (*sqlitecache.Cache)(nil)
	_ ports.Summarizer         = (*ollama.Adapter)(nil)
	_ ports.Summarizer         = (*openrouter.Adapter)(nil)
	_ ports.Summarizer         = (*gemini.Adapter)(nil)
	_ ports.ObjectDetector     = placeholder.ObjectDetector{}
	_ ports.SceneDescriber     = placeholder.SceneDescriber{}
	_ ports.AudioEventDetector = placeholder.AudioEventDetector{}
	_ ports.ResultStore        = (*s3store.Store)(nil)
)
