// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pdiddy/assessment-engine/internal/server"
	"github.com/pdiddy/assessment-engine/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the pipeline over HTTP:

  GET    /healthz
  POST   /v1/assessments                  multipart: document, mode, count, difficulty, conversationId
  POST   /v1/batch                        {"prompts": [...]}
  POST   /v1/conversations
  GET    /v1/conversations/:id/messages
  POST   /v1/conversations/:id/messages   {"question": "..."}
  DELETE /v1/conversations/:id

Conversations are kept in the configured session store (memory, sqlite, or
redis) and evicted after session.ttl of inactivity.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Bool("trace", false, "print OpenTelemetry spans to stderr")
	if err := viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd)
}

// installTracing sets a global tracer provider that writes spans to stderr.
// The returned function flushes and stops it.
func installTracing() (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		shutdown, err := installTracing()
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("trace.shutdown.failed", "error", err.Error())
			}
		}()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer p.Close()

	janitor := &session.Janitor{Store: p.store, Interval: cfg.Session.SweepInterval, Log: log}
	go janitor.Run(ctx)

	log.Info("serve.start",
		"addr", cfg.Server.Addr,
		"provider", string(cfg.Model.Provider),
		"session_backend", string(cfg.Session.Backend),
	)
	return server.New(p.coord, cfg.Server, log).Run(ctx, cfg.Server.Addr)
}
