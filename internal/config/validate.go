package config

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	EngineWhisperCPP = "whispercpp"
	EngineWhisperX   = "whisperx"

	LanguageAuto = "auto"
)

var languageRE = regexp.MustCompile(`^[a-z]{2,3}$`)

// Validate fills defaults for unset fields and rejects invalid values.
func (s *Settings) Validate() error {
	if s.Models.YoloModelPath == "" {
		s.Models.YoloModelPath = "yolo11x.pt"
	}
	if s.Models.PannsModelPath == "" {
		s.Models.PannsModelPath = "models/cnn14.pth"
	}
	if s.Models.WhisperModelType == "" {
		s.Models.WhisperModelType = "base"
	}
	if s.Models.WhisperModelDir == "" {
		s.Models.WhisperModelDir = ".cache/models"
	}
	if s.Models.WhisperBin == "" {
		s.Models.WhisperBin = "whisper-cli"
	}
	if s.Models.WhisperXBin == "" {
		s.Models.WhisperXBin = "whisperx"
	}

	if s.Transcription.DefaultLanguage == "" {
		s.Transcription.DefaultLanguage = "en"
	}
	s.Transcription.DefaultLanguage = strings.ToLower(s.Transcription.DefaultLanguage)
	if err := ValidateLanguage(s.Transcription.DefaultLanguage); err != nil {
		return err
	}
	if s.Transcription.Engine == "" {
		s.Transcription.Engine = EngineWhisperCPP
	}
	if err := ValidateEngine(s.Transcription.Engine); err != nil {
		return err
	}
	if s.Transcription.Threads == 0 {
		s.Transcription.Threads = 4
	}
	if s.Transcription.Threads < 0 {
		return errors.New("transcription.threads must be > 0")
	}
	if s.Transcription.Device == "" {
		s.Transcription.Device = "auto"
	}
	switch s.Transcription.Device {
	case "auto", "cpu", "cuda":
	default:
		return errors.Errorf("transcription.device must be auto, cpu or cuda, got %q", s.Transcription.Device)
	}

	if s.Video.FrameIntervalSeconds == 0 {
		s.Video.FrameIntervalSeconds = 5
	}
	if s.Video.FrameIntervalSeconds < 0 {
		return errors.New("video.frame_interval_seconds must be > 0")
	}
	if s.Video.FFmpegPath == "" {
		s.Video.FFmpegPath = "ffmpeg"
	}
	if s.Video.FFprobePath == "" {
		s.Video.FFprobePath = "ffprobe"
	}

	if s.Summary.Provider == "" {
		s.Summary.Provider = ProviderOllama
	}
	switch s.Summary.Provider {
	case ProviderOllama, ProviderOpenRouter, ProviderGemini:
	default:
		return errors.Errorf("summary.provider must be one of ollama, openrouter, gemini, got %q", s.Summary.Provider)
	}
	if s.Summary.OllamaHost == "" {
		s.Summary.OllamaHost = "http://localhost:11434"
	}
	if s.Summary.OllamaModel == "" {
		s.Summary.OllamaModel = "llama2"
	}
	if s.Summary.OpenRouterModel == "" {
		s.Summary.OpenRouterModel = "z-ai/glm-4.5-air:free"
	}
	if s.Summary.OpenRouterBaseURL == "" {
		s.Summary.OpenRouterBaseURL = "https://openrouter.ai"
	}
	if s.Summary.GeminiModel == "" {
		s.Summary.GeminiModel = "gemini-2.5-flash"
	}
	if s.Summary.RequestsPerMinute == 0 {
		s.Summary.RequestsPerMinute = 30
	}
	if s.Summary.RequestsPerMinute < 0 {
		return errors.New("summary.requests_per_minute must be > 0")
	}

	if s.Paths.OutDir == "" {
		s.Paths.OutDir = "out"
	}
	if s.Paths.CacheDir == "" {
		s.Paths.CacheDir = ".cache"
	}

	if _, err := logrus.ParseLevel(orDefault(s.Logging.Level, "info")); err != nil {
		return errors.Wrap(err, "logging.level")
	}
	switch s.Logging.Format {
	case "":
		s.Logging.Format = "text"
	case "text", "json":
	default:
		return errors.Errorf("logging.format must be text or json, got %q", s.Logging.Format)
	}

	if s.Performance.MaxConcurrent == 0 {
		s.Performance.MaxConcurrent = 2
	}
	if s.Performance.MaxConcurrent < 0 {
		return errors.New("performance.max_concurrent must be > 0")
	}
	return nil
}

func ValidateLanguage(lang string) error {
	if lang == LanguageAuto || languageRE.MatchString(lang) {
		return nil
	}
	return errors.Errorf("invalid transcription language %q: use an ISO 639-1 code such as en, or auto", lang)
}

func ValidateEngine(engine string) error {
	switch engine {
	case EngineWhisperCPP, EngineWhisperX:
		return nil
	default:
		return errors.Errorf("unknown transcription engine %q (want whispercpp or whisperx)", engine)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
