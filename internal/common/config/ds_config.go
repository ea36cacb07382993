package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docfill/engine/internal/common/configtypes"
	"github.com/docfill/engine/internal/common/yamlutil"
	"github.com/docfill/engine/pkg/pattern"
	"github.com/docfill/engine/pkg/types"
)

// DSConfig represents Document Service configuration
type DSConfig struct {
	Server       ServerConfig                    `yaml:"server"`
	Log          configtypes.LogConfig           `yaml:"log"`
	Metrics      configtypes.MetricsConfig       `yaml:"metrics"`
	EventLogging *configtypes.EventLoggingConfig `yaml:"event_logging,omitempty"`
}

// ServerConfig represents the API server configuration
type ServerConfig struct {
	Listen          string         `yaml:"listen"`
	ReadTimeout     types.Duration `yaml:"read_timeout"`
	MaxUploadSize   types.ByteSize `yaml:"max_upload_size"`
	Concurrency     int            `yaml:"concurrency"` // 0 = auto-size from RAM
	AcceptFilenames []string       `yaml:"accept_filenames"`

	acceptPatterns []*pattern.Pattern
}

// AcceptPatterns returns the compiled upload filename patterns.
// Populated during validation.
func (s *ServerConfig) AcceptPatterns() []*pattern.Pattern {
	return s.acceptPatterns
}

const (
	defaultListen        = ":8080"
	defaultReadTimeout   = 30 * time.Second
	defaultMaxUploadSize = 10 * types.MB
	defaultMetricsPath   = "/metrics"
	defaultNamespace     = "docfill"
)

// DSConfigManager handles Document Service configuration
type DSConfigManager struct {
	config     *DSConfig
	configPath string
	logger     *zap.Logger
}

// NewDSConfigManager creates a new config manager. A missing config file is
// not an error: the service runs on defaults.
func NewDSConfigManager(configPath string, logger *zap.Logger) (*DSConfigManager, error) {
	cm := &DSConfigManager{
		configPath: configPath,
		logger:     logger,
	}

	if err := cm.LoadConfig(); err != nil {
		return nil, err
	}

	return cm, nil
}

// LoadConfig loads configuration from file
func (cm *DSConfigManager) LoadConfig() error {
	var cfg DSConfig

	data, err := os.ReadFile(cm.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cm.logger.Info("Config file not found, using defaults",
			zap.String("path", cm.configPath))
	case err != nil:
		return fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cm.config = &cfg
	return nil
}

// GetConfig returns the current configuration
func (cm *DSConfigManager) GetConfig() *DSConfig {
	return cm.config
}

// applyDefaults applies default values to configuration fields
func (cfg *DSConfig) applyDefaults() {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = defaultListen
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = types.Duration(defaultReadTimeout)
	}
	if cfg.Server.MaxUploadSize == 0 {
		cfg.Server.MaxUploadSize = defaultMaxUploadSize
	}
	if len(cfg.Server.AcceptFilenames) == 0 {
		cfg.Server.AcceptFilenames = []string{"*.docx"}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = configtypes.LogLevelInfo
	}
	// If both outputs are disabled (zero values), enable console by default
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaultNamespace
	}
}

// Validate checks configuration validity
func (cfg *DSConfig) Validate() error {
	// Server validation
	if err := configtypes.ValidateListenAddress(cfg.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen: %w", err)
	}

	if cfg.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if cfg.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("server.max_upload_size must be positive")
	}

	if cfg.Server.Concurrency < 0 {
		return fmt.Errorf("server.concurrency must be >= 0 (0 = auto)")
	}

	compiled, err := pattern.CompileAll(cfg.Server.AcceptFilenames)
	if err != nil {
		return fmt.Errorf("invalid server.accept_filenames: %w", err)
	}
	cfg.Server.acceptPatterns = compiled

	// Log validation
	validLogLevels := map[string]bool{
		configtypes.LogLevelDebug:  true,
		configtypes.LogLevelInfo:   true,
		configtypes.LogLevelWarn:   true,
		configtypes.LogLevelError:  true,
		configtypes.LogLevelDPanic: true,
		configtypes.LogLevelPanic:  true,
		configtypes.LogLevelFatal:  true,
	}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, error, dpanic, panic, or fatal)", cfg.Log.Level)
	}

	validConsoleFormats := map[string]bool{
		configtypes.LogFormatJSON:    true,
		configtypes.LogFormatConsole: true,
	}
	if cfg.Log.Console.Enabled && cfg.Log.Console.Format != "" && !validConsoleFormats[cfg.Log.Console.Format] {
		return fmt.Errorf("invalid log.console.format: %s (must be json or console)", cfg.Log.Console.Format)
	}

	if cfg.Log.File.Enabled {
		if cfg.Log.File.Path == "" {
			return fmt.Errorf("log.file.path must be specified when file logging is enabled")
		}

		validFileFormats := map[string]bool{
			configtypes.LogFormatJSON: true,
			configtypes.LogFormatText: true,
		}
		if cfg.Log.File.Format != "" && !validFileFormats[cfg.Log.File.Format] {
			return fmt.Errorf("invalid log.file.format: %s (must be json or text)", cfg.Log.File.Format)
		}

		if cfg.Log.File.Rotation.MaxSize < 0 {
			return fmt.Errorf("log.file.rotation.max_size must be >= 0, got %d", cfg.Log.File.Rotation.MaxSize)
		}
		if cfg.Log.File.Rotation.MaxAge < 0 {
			return fmt.Errorf("log.file.rotation.max_age must be >= 0, got %d", cfg.Log.File.Rotation.MaxAge)
		}
		if cfg.Log.File.Rotation.MaxBackups < 0 {
			return fmt.Errorf("log.file.rotation.max_backups must be >= 0, got %d", cfg.Log.File.Rotation.MaxBackups)
		}
	}

	// Metrics validation
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			return fmt.Errorf("metrics.listen is required when metrics enabled")
		} else if err := configtypes.ValidateListenAddress(cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("invalid metrics.listen: %w", err)
		}

		metricsPort, err1 := configtypes.GetPortFromListen(cfg.Metrics.Listen)
		serverPort, err2 := configtypes.GetPortFromListen(cfg.Server.Listen)
		if err1 == nil && err2 == nil && metricsPort == serverPort {
			return fmt.Errorf("metrics.listen port (%d) must differ from server.listen port (%d) when metrics enabled", metricsPort, serverPort)
		}
	}

	if cfg.Metrics.Path != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics.path: %s (must start with /)", cfg.Metrics.Path)
	}

	if cfg.Metrics.Namespace != "" {
		// Prometheus namespace must match: [a-zA-Z_][a-zA-Z0-9_]*
		if matched, _ := regexp.MatchString(`^[a-zA-Z_][a-zA-Z0-9_]*$`, cfg.Metrics.Namespace); !matched {
			return fmt.Errorf("invalid metrics.namespace: %s (must match [a-zA-Z_][a-zA-Z0-9_]*)", cfg.Metrics.Namespace)
		}
	}

	// Event logging validation; the line template itself is validated by
	// the emitter at startup
	if cfg.EventLogging != nil && cfg.EventLogging.File.Enabled {
		if cfg.EventLogging.File.Path == "" {
			return fmt.Errorf("event_logging.file.path must be specified when event logging is enabled")
		}
	}

	return nil
}

// LoadDSConfig loads configuration from a file without a manager
func LoadDSConfig(configPath string) (*DSConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg DSConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// GetConfigPath resolves the config file path. The file itself may be
// absent; the caller decides whether that matters.
func GetConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	return absPath, nil
}
