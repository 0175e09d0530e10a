// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs one-shot text-conversion images (markitdown)
// through whichever container CLI is installed locally.
package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runtime runs conversion images through a container CLI.
type Runtime interface {
	// Name returns the CLI binary name ("docker" or "podman").
	Name() string

	// ImageExists returns nil when image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Run starts image with args appended after the image name, piping
	// stdin in and stdout out. The container has no network. Cancelling
	// ctx kills the process.
	Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error
}

// executor abstracts process execution for tests.
type executor interface {
	LookPath(file string) (string, error)
	Exec(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osExecutor) Exec(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// candidate describes a supported container CLI.
type candidate struct {
	bin        string
	imageCheck []string
}

// candidates are tried in order.
var candidates = []candidate{
	{bin: "docker", imageCheck: []string{"image", "inspect"}},
	{bin: "podman", imageCheck: []string{"image", "exists"}},
}

type cli struct {
	candidate
	exec executor
}

func (c *cli) Name() string { return c.bin }

func (c *cli) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string(nil), c.imageCheck...), image)
	if err := c.exec.Exec(ctx, c.bin, args, nil, io.Discard); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, c.bin, err)
	}
	return nil
}

func (c *cli) Run(ctx context.Context, image string, extra []string, stdin io.Reader, stdout io.Writer) error {
	args := append([]string{"run", "--rm", "-i", "--network", "none", image}, extra...)
	if err := c.exec.Exec(ctx, c.bin, args, stdin, stdout); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s container %s cancelled: %w", c.bin, image, ctx.Err())
		}
		return fmt.Errorf("running %s container %s: %w", c.bin, image, err)
	}
	return nil
}

// usable reports whether the binary is on PATH and its daemon answers.
func (c *cli) usable(ctx context.Context) bool {
	if _, err := c.exec.LookPath(c.bin); err != nil {
		return false
	}
	return c.exec.Exec(ctx, c.bin, []string{"info"}, nil, io.Discard) == nil
}

// DetectRuntime returns the first usable container CLI, docker before
// podman.
func DetectRuntime(ctx context.Context) (Runtime, error) {
	return detect(ctx, osExecutor{})
}

func detect(ctx context.Context, ex executor) (Runtime, error) {
	names := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		c := &cli{candidate: cand, exec: ex}
		if c.usable(ctx) {
			return c, nil
		}
		names = append(names, cand.bin)
	}
	return nil, fmt.Errorf("no container runtime available: tried %s", strings.Join(names, ", "))
}
