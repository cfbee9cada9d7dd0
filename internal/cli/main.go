package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/config"
	"github.com/forPelevin/vidscope/internal/logging"
)

func Main() {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperr.ExitCode(err))
	}
}

// app is the state shared by subcommands once the root has loaded config.
type app struct {
	settings config.Settings
	log      *logrus.Logger
	stderr   io.Writer
}

func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	root := &cobra.Command{
		Use:          "vidscope",
		Short:        "Analyze local videos with pretrained AI models",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config-dir", config.DefaultDir, "Directory with .env and settings.yaml")
	root.PersistentFlags().String("settings", "", "Settings file (defaults to <config-dir>/settings.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")

	analyze := &cobra.Command{
		Use:   "analyze",
		Short: "Run an analysis",
	}
	analyze.AddCommand(newVideoCommand(a), newWatchCommand(a))
	root.AddCommand(analyze)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config-dir")
	file, _ := cmd.Flags().GetString("settings")
	verbose, _ := cmd.Flags().GetBool("verbose")

	// Bootstrap logger for config loading; replaced once settings are known.
	boot, _ := logging.New(logging.Options{Output: a.stderr})
	if verbose {
		boot.SetLevel(logrus.DebugLevel)
	}
	s, err := config.Load(config.Options{Dir: dir, File: file, Log: boot})
	if err != nil {
		return apperr.Config("cli.init", err, "config")
	}

	log, err := logging.New(logging.Options{
		Level:  s.Logging.Level,
		Format: s.Logging.Format,
		Dir:    s.Paths.LogDir,
		Output: a.stderr,
	})
	if err != nil {
		return apperr.Config("cli.init", err, "logging")
	}
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	a.settings = s
	a.log = log
	return nil
}
