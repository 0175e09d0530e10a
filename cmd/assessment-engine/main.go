// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the assessment-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/assessment-engine/internal/logger"
	"github.com/pdiddy/assessment-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	// log is built in PersistentPreRunE from the log_mode setting.
	log = logger.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "assessment-engine",
	Short: "Turn lecture documents into summaries, quizzes, and study questions",
	Long: `assessment-engine extracts text from PDF and PPTX documents and asks a
generative model for a summary, a multiple-choice quiz, long-form theory
questions, or open study questions. When the model's reply is unusable the
engine builds items directly from the document text, so generative modes
always return something.

Use generate for one document, extract to inspect extracted text, batch to
send raw prompts, and serve to run the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(viper.GetString("log_mode"))
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		log = l

		s, err := secrets.Load(".secrets/", log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug("secrets.loaded", "keys", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./assessment-engine.yaml or ~/.config/assessment-engine/assessment-engine.yaml)")
	pf.String("log-mode", "development", "log output: development or production")
	pf.String("provider", "claude", "model provider: claude, gemini, vertex, or openai")
	pf.String("model", "", "model identifier (default: provider's default)")
	pf.Duration("timeout", 0, "model call timeout (default 60s)")
	pf.String("slides", "ooxml", "slide deck parser: ooxml or markitdown")

	bindFlag("log_mode", "log-mode")
	bindFlag("model.provider", "provider")
	bindFlag("model.model", "model")
	bindFlag("model.timeout", "timeout")
	bindFlag("extraction.slide_backend", "slides")
}

// bindFlag binds a persistent flag to a config key so flags, environment,
// and the config file resolve through viper.
func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

func initConfig() {
	setDefaults()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("assessment-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "assessment-engine"))
		}
	}

	viper.SetEnvPrefix("ASSESSMENT_ENGINE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
