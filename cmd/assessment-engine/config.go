// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/assessment-engine/internal/container"
	"github.com/pdiddy/assessment-engine/internal/convert"
	"github.com/pdiddy/assessment-engine/internal/generate"
	"github.com/pdiddy/assessment-engine/internal/model"
	"github.com/pdiddy/assessment-engine/internal/secrets"
	"github.com/pdiddy/assessment-engine/internal/session"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

// envKeyReplacer maps nested keys such as model.timeout onto
// ASSESSMENT_ENGINE_MODEL_TIMEOUT.
var envKeyReplacer = strings.NewReplacer(".", "_")

// setDefaults registers every key so environment variables resolve even
// when no config file sets them.
func setDefaults() {
	d := types.Defaults()
	viper.SetDefault("log_mode", d.LogMode)

	viper.SetDefault("model.provider", string(d.Model.Provider))
	viper.SetDefault("model.model", d.Model.Model)
	viper.SetDefault("model.api_key", "")
	viper.SetDefault("model.project", "")
	viper.SetDefault("model.region", "")
	viper.SetDefault("model.base_url", "")
	viper.SetDefault("model.max_tokens", d.Model.MaxTokens)
	viper.SetDefault("model.timeout", d.Model.Timeout)
	viper.SetDefault("model.max_retries", d.Model.MaxRetries)

	viper.SetDefault("extraction.min_content_chars", d.Extraction.MinContentChars)
	viper.SetDefault("extraction.slide_backend", string(d.Extraction.SlideBackend))

	viper.SetDefault("session.backend", string(d.Session.Backend))
	viper.SetDefault("session.ttl", d.Session.TTL)
	viper.SetDefault("session.sweep_interval", d.Session.SweepInterval)
	viper.SetDefault("session.path", d.Session.Path)
	viper.SetDefault("session.redis_addr", "")

	viper.SetDefault("server.addr", d.Server.Addr)
	viper.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	viper.SetDefault("server.allow_origins", []string{})

	viper.SetDefault("batch.concurrency", d.Batch.Concurrency)
}

// loadConfig resolves the full configuration and fills the model API key
// from .secrets/ or the environment when the config leaves it empty.
func loadConfig() (types.Config, error) {
	cfg := types.Defaults()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	if cfg.Model.Timeout <= 0 {
		cfg.Model.Timeout = types.Defaults().Model.Timeout
	}
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = secrets.APIKey(loadedSecrets, cfg.Model.Provider)
	}
	return cfg, nil
}

// newExtractor builds the extractor with the configured slide parser.
func newExtractor(ctx context.Context, cfg types.ExtractionConfig) (*convert.Extractor, error) {
	var slides convert.Converter
	switch cfg.SlideBackend {
	case types.SlidesOOXML, "":
		slides = convert.NewOOXMLSlideParser()
	case types.SlidesMarkitdown:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		p, err := convert.NewMarkitdownSlideParser(ctx, rt)
		if err != nil {
			return nil, err
		}
		slides = p
	default:
		return nil, fmt.Errorf("unknown slide backend %q: use ooxml or markitdown", cfg.SlideBackend)
	}
	return convert.NewExtractor(convert.NewPDFConverter(), slides, cfg.MinContentChars), nil
}

// pipeline is everything a command needs to run requests.
type pipeline struct {
	coord   *generate.Coordinator
	store   session.Store
	backend model.Backend
}

// Close releases the backend and the session store.
func (p *pipeline) Close() {
	if err := model.CloseBackend(p.backend); err != nil {
		log.Warn("model.close.failed", "error", err.Error())
	}
	if p.store != nil {
		if err := p.store.Shutdown(); err != nil {
			log.Warn("session.close.failed", "error", err.Error())
		}
	}
}

// newPipeline wires extractor, model client, and, when withStore is set,
// the conversation store into a Coordinator.
func newPipeline(ctx context.Context, cfg types.Config, withStore bool) (*pipeline, error) {
	extractor, err := newExtractor(ctx, cfg.Extraction)
	if err != nil {
		return nil, err
	}

	backend, err := model.NewBackend(ctx, cfg.Model, log)
	if err != nil {
		return nil, err
	}
	client := model.NewClient(backend, model.ClientOptions{
		Timeout:     cfg.Model.Timeout,
		Concurrency: cfg.Batch.Concurrency,
		Log:         log,
	})

	p := &pipeline{backend: backend}
	if withStore {
		store, err := session.Open(ctx, cfg.Session, session.Options{
			RedisPassword: loadedSecrets[secrets.RedisPassword],
			Log:           log,
		})
		if err != nil {
			_ = model.CloseBackend(backend)
			return nil, err
		}
		p.store = store
	}

	p.coord = generate.New(extractor, client, generate.Options{Store: p.store, Log: log})
	return p, nil
}
