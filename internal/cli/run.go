package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/vidscope/internal/pipeline"
	"github.com/forPelevin/vidscope/internal/types"
)

const runTimeout = 3 * time.Hour

func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("transcription-language", "", "ISO 639-1 language code or auto (default from settings)")
	f.Bool("diarize", false, "Label speakers (requires HUGGING_FACE_TOKEN, uses whisperx)")
	f.String("engine", "", "Transcription engine: whispercpp or whisperx (default from settings)")
	f.String("model", "", "Whisper model size or path (default from settings)")
	f.Bool("summarize", false, "Summarize the transcript with the configured provider")
	f.StringSlice("with", nil, "Extra capabilities: objects, scenes, audio-events")
	f.StringSlice("format", pipeline.DefaultFormats, "Transcript exports: json, srt, txt, ass")
	f.String("out", "", "Output directory (default from settings)")
	f.Bool("no-cache", false, "Ignore the transcript cache")
}

func newVideoCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video <path>",
		Short: "Transcribe and analyze one video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVideo(cmd, args[0])
		},
	}
	addAnalysisFlags(cmd)
	return cmd
}

// pipelineConfig builds the request for input from the analysis flags.
func (a *app) pipelineConfig(cmd *cobra.Command, input string) (pipeline.Config, error) {
	f := cmd.Flags()
	lang, _ := f.GetString("transcription-language")
	diarize, _ := f.GetBool("diarize")
	engine, _ := f.GetString("engine")
	model, _ := f.GetString("model")
	summarize, _ := f.GetBool("summarize")
	with, _ := f.GetStringSlice("with")
	formats, _ := f.GetStringSlice("format")
	outDir, _ := f.GetString("out")
	noCache, _ := f.GetBool("no-cache")

	caps, err := pipeline.ParseCapabilities(with)
	if err != nil {
		return pipeline.Config{}, err
	}
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}

	absIn := input
	if input != "" {
		if absIn, err = filepath.Abs(input); err != nil {
			return pipeline.Config{}, err
		}
	}

	return pipeline.Config{
		Input:        absIn,
		Language:     lang,
		Engine:       engine,
		Model:        model,
		Diarize:      diarize,
		Summarize:    summarize,
		Capabilities: caps,
		Formats:      formats,
		OutDir:       outDir,
		NoCache:      noCache,
		Settings:     a.settings,
		Log:          a.log,
	}, nil
}

func (a *app) runVideo(cmd *cobra.Command, input string) error {
	cfg, err := a.pipelineConfig(cmd, input)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), res.Report)
	a.log.WithField("run_dir", res.RunDir).Info("Done")
	return nil
}

func printReport(w io.Writer, rep types.Report) {
	if rep.Transcript.HasSpeakers() {
		for _, l := range rep.Transcript.Lines() {
			fmt.Fprintln(w, l)
		}
	} else {
		fmt.Fprintln(w, rep.Text)
	}
	if rep.Summary != nil {
		fmt.Fprintf(w, "\nSummary:\n%s\n", rep.Summary.Text)
		for _, p := range rep.Summary.KeyPoints {
			fmt.Fprintf(w, "- %s\n", p)
		}
	}
	for _, c := range rep.Capabilities {
		if c.Status == types.StatusNotImplemented {
			fmt.Fprintf(w, "\n%s: not implemented\n", c.Name)
		}
	}
}
