package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docfill/engine/internal/common/config"
	"github.com/docfill/engine/internal/common/configtypes"
	"github.com/docfill/engine/pkg/types"
)

// ConfigBuilder builds the service config used by acceptance runs.
type ConfigBuilder struct {
	port          int
	eventLogPath  string
	maxUploadSize types.ByteSize
}

// NewConfigBuilder creates a builder for a service listening on port.
func NewConfigBuilder(port int) *ConfigBuilder {
	return &ConfigBuilder{
		port:          port,
		maxUploadSize: 5 * types.MB,
	}
}

// WithEventLog enables file-based event logging to the given path.
func (b *ConfigBuilder) WithEventLog(path string) *ConfigBuilder {
	b.eventLogPath = path
	return b
}

// WithMaxUploadSize overrides the upload size limit.
func (b *ConfigBuilder) WithMaxUploadSize(size types.ByteSize) *ConfigBuilder {
	b.maxUploadSize = size
	return b
}

// Build assembles the typed service configuration.
func (b *ConfigBuilder) Build() *config.DSConfig {
	cfg := &config.DSConfig{
		Server: config.ServerConfig{
			Listen:          fmt.Sprintf("127.0.0.1:%d", b.port),
			ReadTimeout:     types.Duration(10 * time.Second),
			MaxUploadSize:   b.maxUploadSize,
			Concurrency:     64,
			AcceptFilenames: []string{"*.docx"},
		},
		Log: configtypes.LogConfig{
			Level: configtypes.LogLevelWarn,
			Console: configtypes.ConsoleLogConfig{
				Enabled: true,
				Format:  configtypes.LogFormatConsole,
			},
		},
		Metrics: configtypes.MetricsConfig{
			Enabled: false,
		},
	}

	if b.eventLogPath != "" {
		cfg.EventLogging = &configtypes.EventLoggingConfig{
			File: configtypes.EventFileConfig{
				Enabled: true,
				Path:    b.eventLogPath,
			},
		}
	}

	return cfg
}

// WriteConfig writes the config as YAML into dir and returns the file path.
func (b *ConfigBuilder) WriteConfig(dir string) (string, error) {
	data, err := yaml.Marshal(b.Build())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(dir, "docfill-service.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}

	return path, nil
}
