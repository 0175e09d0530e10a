// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: anthropic-api-key, gemini-api-key, openai-api-key, redis-password.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/assessment-engine/internal/logger"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

// Key file names.
const (
	AnthropicAPIKey = "anthropic-api-key"
	GeminiAPIKey    = "gemini-api-key"
	OpenAIAPIKey    = "openai-api-key"
	RedisPassword   = "redis-password"
)

// providerKeys maps a model provider to its key file and the environment
// variables consulted when the file is absent. Vertex uses application
// default credentials and has no entry.
var providerKeys = map[types.ModelProvider]struct {
	file string
	envs []string
}{
	types.ProviderClaude: {AnthropicAPIKey, []string{"ANTHROPIC_API_KEY"}},
	types.ProviderGemini: {GeminiAPIKey, []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}},
	types.ProviderOpenAI: {OpenAIAPIKey, []string{"OPENAI_API_KEY"}},
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, log *logger.Logger) (map[string]string, error) {
	if log == nil {
		log = logger.Nop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("secrets.unreadable", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// APIKey returns the key for provider: the secrets file first, then the
// provider's environment variables. It returns "" when none is set.
func APIKey(secrets map[string]string, provider types.ModelProvider) string {
	k, ok := providerKeys[provider]
	if !ok {
		return ""
	}
	if v := secrets[k.file]; v != "" {
		return v
	}
	for _, env := range k.envs {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return ""
}
