// Copyright 2026 EDW Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test.
// It is the pre-Go-1.24 equivalent of t.Chdir.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())

	config, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "0.0.0.0:8080", config.Server.Addr())
	assert.Equal(t, "claude-sonnet-4-5-20250929", config.LLM.AnthropicModel)
	assert.Equal(t, 2048, config.LLM.MaxTokens)
	assert.Equal(t, "postgres", config.Warehouse.Driver)
	assert.Equal(t, "transactions", config.Warehouse.Table)
	assert.Equal(t, 100, config.Metrics.Window)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadConfig_FromFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "edw-assistant.yaml")
	content := `
server:
  port: 9090
  host: 127.0.0.1
warehouse:
  driver: mysql
  dsn: user:pass@tcp(db:3306)/analytics
  table: sales
metrics:
  window: 50
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	config, err := LoadConfig(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "127.0.0.1:9090", config.Server.Addr())
	assert.Equal(t, "mysql", config.Warehouse.Driver)
	assert.Equal(t, "sales", config.Warehouse.Table)
	assert.Equal(t, 50, config.Metrics.Window)
	assert.Equal(t, "debug", config.Logging.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, 2048, config.LLM.MaxTokens)
}

func TestLoadConfig_AnthropicKeyFallback(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", config.LLM.AnthropicAPIKey)
}

func TestLoadConfig_BadFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "edw-assistant.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server: [not a map"), 0o644))

	_, err := LoadConfig(cfgPath)
	assert.Error(t, err)
}
