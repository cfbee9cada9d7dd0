package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDir          = "config"
	DefaultSettingsFile = "settings.yaml"
)

type Settings struct {
	Models        ModelsSettings        `yaml:"models"`
	Transcription TranscriptionSettings `yaml:"transcription"`
	Video         VideoSettings         `yaml:"video"`
	Summary       SummarySettings       `yaml:"summary"`
	Paths         PathsSettings         `yaml:"paths"`
	Logging       LoggingSettings       `yaml:"logging"`
	Storage       StorageSettings       `yaml:"storage"`
	Performance   PerformanceSettings   `yaml:"performance"`

	// Secrets come from the environment only.
	HuggingFaceToken string `yaml:"-"`
	OpenRouterAPIKey string `yaml:"-"`
	GeminiAPIKey     string `yaml:"-"`
	S3AccessKey      string `yaml:"-"`
	S3SecretKey      string `yaml:"-"`
}

type ModelsSettings struct {
	YoloModelPath    string `yaml:"yolo_model_path"`
	BlipModelPath    string `yaml:"blip_model_path"`
	PannsModelPath   string `yaml:"panns_model_path"`
	WhisperModelType string `yaml:"whisper_model_type"`
	WhisperModelDir  string `yaml:"whisper_model_dir"`
	WhisperBin       string `yaml:"whisper_bin"`
	WhisperXBin      string `yaml:"whisperx_bin"`
}

type TranscriptionSettings struct {
	DefaultLanguage string `yaml:"default_language"`
	Engine          string `yaml:"engine"`
	Threads         int    `yaml:"threads"`
	Device          string `yaml:"device"`
	ComputeType     string `yaml:"compute_type"`
}

type VideoSettings struct {
	FrameIntervalSeconds int    `yaml:"frame_interval_seconds"`
	FFmpegPath           string `yaml:"ffmpeg_path"`
	FFprobePath          string `yaml:"ffprobe_path"`
}

type SummarySettings struct {
	Provider               string   `yaml:"provider"`
	OllamaHost             string   `yaml:"ollama_host"`
	OllamaModel            string   `yaml:"ollama_model"`
	OpenRouterModel        string   `yaml:"openrouter_model"`
	OpenRouterBaseURL      string   `yaml:"openrouter_base_url"`
	OpenRouterAllowedHosts []string `yaml:"openrouter_allowed_hosts"`
	GeminiModel            string   `yaml:"gemini_model"`
	RequestsPerMinute      int      `yaml:"requests_per_minute"`
}

type PathsSettings struct {
	OutDir   string `yaml:"out_dir"`
	CacheDir string `yaml:"cache_dir"`
	LogDir   string `yaml:"log_dir"`
}

type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StorageSettings struct {
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
	S3Prefix   string `yaml:"s3_prefix"`
}

type PerformanceSettings struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

func (s Settings) FrameInterval() time.Duration {
	return time.Duration(s.Video.FrameIntervalSeconds) * time.Second
}

type Options struct {
	// Dir holds .env and the default settings file.
	Dir string
	// File overrides the settings file; it must exist when set.
	File string
	Log  logrus.FieldLogger
}

// Load reads .env, the settings file and environment overrides, then validates.
// Callers load once at startup and pass Settings down.
func Load(opts Options) (Settings, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir
	}

	loadDotEnv(dir, log)

	var s Settings
	file := opts.File
	explicit := file != ""
	if !explicit {
		file = filepath.Join(dir, DefaultSettingsFile)
	}
	b, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &s); err != nil {
			return Settings{}, errors.Wrapf(err, "parse settings %s", file)
		}
	case os.IsNotExist(err) && !explicit:
		log.WithField("file", file).Debug("settings file not found, using defaults")
	default:
		return Settings{}, errors.Wrap(err, "read settings")
	}

	applyEnv(&s, log)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func loadDotEnv(dir string, log logrus.FieldLogger) {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		log.WithField("path", path).Warn(".env file not found in config dir; relying on environment")
		_ = godotenv.Load() // best-effort: load .env from the working dir if present
	}
}

func applyEnv(s *Settings, log logrus.FieldLogger) {
	setString(&s.Models.YoloModelPath, "YOLO_MODEL_PATH")
	setString(&s.Models.BlipModelPath, "BLIP_MODEL_PATH")
	setString(&s.Models.PannsModelPath, "PANNS_MODEL_PATH")
	setString(&s.Models.WhisperModelType, "WHISPER_MODEL_TYPE")
	setString(&s.Models.WhisperModelDir, "WHISPER_MODEL_DIR")
	setString(&s.Models.WhisperBin, "WHISPER_BIN")
	setString(&s.Models.WhisperXBin, "WHISPERX_BIN")

	setString(&s.Transcription.DefaultLanguage, "DEFAULT_TRANSCRIPTION_LANGUAGE")
	setString(&s.Transcription.Engine, "TRANSCRIPTION_ENGINE")
	setString(&s.Transcription.Device, "WHISPER_DEVICE")
	setString(&s.Transcription.ComputeType, "WHISPER_COMPUTE_TYPE")
	setInt(&s.Transcription.Threads, "WHISPER_THREADS", log)

	setInt(&s.Video.FrameIntervalSeconds, "FRAME_INTERVAL_SECONDS", log)
	setString(&s.Video.FFmpegPath, "FFMPEG_PATH")
	setString(&s.Video.FFprobePath, "FFPROBE_PATH")

	setString(&s.Summary.Provider, "SUMMARY_PROVIDER")
	setString(&s.Summary.OllamaHost, "OLLAMA_HOST")
	setString(&s.Summary.OllamaModel, "DEFAULT_OLLAMA_MODEL")
	setString(&s.Summary.OpenRouterModel, "OPENROUTER_MODEL")
	setString(&s.Summary.OpenRouterBaseURL, "OPENROUTER_BASE_URL")
	setString(&s.Summary.GeminiModel, "GEMINI_MODEL")
	setInt(&s.Summary.RequestsPerMinute, "SUMMARY_REQUESTS_PER_MINUTE", log)
	if v, ok := os.LookupEnv("OPENROUTER_ALLOWED_HOSTS"); ok && strings.TrimSpace(v) != "" {
		s.Summary.OpenRouterAllowedHosts = splitList(v)
	}

	setString(&s.Paths.OutDir, "VIDSCOPE_OUT_DIR")
	setString(&s.Paths.CacheDir, "VIDSCOPE_CACHE_DIR")
	setString(&s.Paths.LogDir, "VIDSCOPE_LOG_DIR")
	setString(&s.Logging.Level, "LOG_LEVEL")
	setString(&s.Logging.Format, "LOG_FORMAT")

	setString(&s.Storage.S3Bucket, "VIDSCOPE_S3_BUCKET")
	setString(&s.Storage.S3Region, "VIDSCOPE_S3_REGION")
	setString(&s.Storage.S3Endpoint, "VIDSCOPE_S3_ENDPOINT")
	setString(&s.Storage.S3Prefix, "VIDSCOPE_S3_PREFIX")

	setInt(&s.Performance.MaxConcurrent, "VIDSCOPE_MAX_CONCURRENT", log)

	s.HuggingFaceToken = strings.TrimSpace(os.Getenv("HUGGING_FACE_TOKEN"))
	s.OpenRouterAPIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	s.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	s.S3AccessKey = strings.TrimSpace(os.Getenv("VIDSCOPE_S3_ACCESS_KEY"))
	s.S3SecretKey = strings.TrimSpace(os.Getenv("VIDSCOPE_S3_SECRET_KEY"))
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string, log logrus.FieldLogger) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.WithFields(logrus.Fields{
			"key":   key,
			"value": v,
		}).Warn("Invalid integer, keeping configured value")
		return
	}
	*dst = n
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
