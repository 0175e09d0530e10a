// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/assessment-engine/internal/convert"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Extract normalized text from PDF and PPTX documents",
	Long: `Extract prints the normalized text the engine would send to the model.
With --out-dir, each document's text is written to <out-dir>/<name>.txt with
a YAML frontmatter header; files that already exist are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("out-dir", "", "write <name>.txt files here instead of printing")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out-dir")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := newExtractor(cmd.Context(), cfg.Extraction)
	if err != nil {
		return err
	}

	if outDir == "" {
		if len(args) != 1 {
			return fmt.Errorf("extracting %d files requires --out-dir", len(args))
		}
		doc, err := convert.LoadDocument(args[0])
		if err != nil {
			return err
		}
		text, err := e.Extract(cmd.Context(), doc)
		if err != nil {
			return err
		}
		if err := convert.Classify(text, e.MinContentChars()); err != nil {
			log.Warn("extract.short", "file", args[0], "error", err.Error())
		}
		fmt.Println(text)
		return nil
	}

	result := convert.ExtractPaths(cmd.Context(), e, args, outDir, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d document(s) failed extraction", result.Failed)
	}
	return nil
}
