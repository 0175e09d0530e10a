// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/assessment-engine/internal/convert"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Generate a summary, quiz, theory questions, or study questions from a document",
	Long: `Generate extracts the text of a PDF or PPTX document and produces the
requested assessment. Generative modes (quiz, theory, questions) always
return at least one item: when the model's reply cannot be used, items are
built directly from the document text.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("mode", "quiz", "output mode: summary, quiz, theory, or questions")
	generateCmd.Flags().Int("count", types.DefaultItemCount, "number of items to generate")
	generateCmd.Flags().String("difficulty", "moderate", "difficulty: easy, moderate, or hard")
	generateCmd.Flags().String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	count, _ := cmd.Flags().GetInt("count")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q: use json or yaml", format)
	}

	req, err := types.AssessmentRequest{
		Mode:       types.Mode(mode),
		Count:      count,
		Difficulty: types.Difficulty(difficulty),
	}.Normalize()
	if err != nil {
		return err
	}

	doc, err := convert.LoadDocument(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer p.Close()

	payload, err := p.coord.Run(cmd.Context(), doc, req)
	if err != nil {
		return err
	}
	return writePayload(os.Stdout, payload, format)
}

func writePayload(w io.Writer, p *types.Payload, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(p)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
