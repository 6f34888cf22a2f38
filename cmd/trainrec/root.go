package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pokeriq/trainrec/config"
	"github.com/pokeriq/trainrec/pkg/logx"
)

var version = "dev"

// globals 是子命令共享的配置与日志。
type globals struct {
	configPath string
	logLevel   string

	cfg    *config.App
	logger zerolog.Logger
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:   "trainrec",
		Short: "Trainrec - personalized poker training recommendations",
		Long: `Trainrec serves personalized training recommendations for poker players.

Four strategies (collaborative, content-based, sequence and learning path)
score the candidate catalog in parallel; their results are fused by
level-aware weights and post-processed for diversity, difficulty and novelty.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to YAML config (default $"+config.ConfigPathEnvVar+")")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCommand(g))
	cmd.AddCommand(newRecommendCommand(g))
	cmd.AddCommand(newRefreshCommand(g))

	return cmd
}

func (g *globals) load() error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	g.cfg = cfg
	g.logger = logx.New(cfg.Log)
	return nil
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
