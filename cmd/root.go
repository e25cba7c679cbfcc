package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/systems"
)

type globalFlags struct {
	ConfigPath string
	EnvFile    string
	Project    string
	LogLevel   string
	Workers    int
	Quiet      bool
}

// NewRootCommand builds the anima-assets command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "anima-assets",
		Short: "Import, inspect and pack game assets",
		Long: `anima-assets drives the anima resource system from the command line.

It indexes the source files of a project directory, imports them into
GPU-ready resources on a headless device and reports what they cost.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "TOML configuration file")
	pf.StringVar(&flags.EnvFile, "env-file", ".env", "dotenv file read for ANIMA_* variables, ignored when missing")
	pf.StringVarP(&flags.Project, "project", "p", "", "project directory (overrides the configuration)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error (overrides the configuration)")
	pf.IntVarP(&flags.Workers, "workers", "w", -1, "decode workers, 0 loads on the main goroutine")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "no progress bar")

	root.AddCommand(
		newInspectCommand(flags),
		newPackCommand(flags),
		newWatchCommand(flags),
		newFormatsCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func (f *globalFlags) config() (*config.Config, error) {
	var envFiles []string
	if f.EnvFile != "" {
		envFiles = append(envFiles, f.EnvFile)
	}
	cfg, err := config.Load(f.ConfigPath, envFiles...)
	if err != nil {
		return nil, err
	}
	if f.Project != "" {
		cfg.Resources.ProjectDirectory = f.Project
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.Workers >= 0 {
		cfg.Jobs.Workers = f.Workers
	}
	return cfg, cfg.Validate()
}

func (f *globalFlags) newEngine(cfg *config.Config, game *engine.Game, progress systems.ProgressReporter) (*engine.Engine, error) {
	if game == nil {
		game = &engine.Game{}
	}
	if game.ApplicationConfig == nil {
		game.ApplicationConfig = &engine.ApplicationConfig{}
	}
	game.ApplicationConfig.Name = "anima-assets"
	game.ApplicationConfig.Config = cfg
	if progress != nil && !f.Quiet {
		game.ApplicationConfig.Progress = progress
	}
	return engine.New(game)
}
