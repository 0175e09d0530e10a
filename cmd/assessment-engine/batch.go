// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <prompts-file>",
	Short: "Send many prompts to the model concurrently",
	Long: `Batch reads prompts separated by blank lines, sends them to the model
with bounded concurrency (batch.concurrency), and prints one JSON result per
prompt in input order. A failed prompt is reported in its own slot and does
not affect the others.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Int("concurrency", 0, "maximum in-flight model calls (default from config)")

	rootCmd.AddCommand(batchCmd)
}

var blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)

// splitPrompts returns the non-empty blank-line-separated blocks of s.
func splitPrompts(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var prompts []string
	for _, block := range blankLineRe.Split(s, -1) {
		if b := strings.TrimSpace(block); b != "" {
			prompts = append(prompts, b)
		}
	}
	return prompts
}

type batchOutput struct {
	Index int    `json:"index"`
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading prompts: %w", err)
	}
	prompts := splitPrompts(string(data))
	if len(prompts) == 0 {
		return fmt.Errorf("%s contains no prompts", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.Batch.Concurrency = n
	}
	p, err := newPipeline(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer p.Close()

	results := p.coord.Batch(cmd.Context(), prompts)
	out := make([]batchOutput, len(results))
	failed := 0
	for i, r := range results {
		out[i] = batchOutput{Index: i, OK: r.OK(), Text: r.Text, Error: string(r.Failure)}
		if !r.OK() {
			failed++
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Batch summary: %d succeeded, %d failed, %d total\n", len(results)-failed, failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d prompt(s) failed", failed)
	}
	return nil
}
