package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/rainbow-me/access-gateway/common/env"
	"github.com/rainbow-me/access-gateway/common/logger"
)

const (
	fileFormat     = ".yaml"        // File format of the config files
	relativePath   = "./cmd/config" // Default relative path for config files (base path)
	binaryPath     = "./config"     // Path for binary build config (base path)
	binaryDir      = "target"       // Directory name for the binary target
	binaryInDocker = "app"          // Directory name for Docker deployment
	envVarPrefix   = "env://"       // Prefix for environment variables
)

// YamlReadConfig holds the configuration paths (relative and absolute).
type YamlReadConfig struct {
	RelativePath string // Path relative to the current directory
	AbsolutePath string // Absolute path if provided
	DynamicDir   string // Optional dynamic directory
	Defaults     map[string]any
}

// ReadConfigOption is a function signature used to set configuration options.
type ReadConfigOption func(*YamlReadConfig)

// WithRelativePath sets a relative path for the config file.
func WithRelativePath(path string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.RelativePath = path
	}
}

// WithAbsolutePath sets an absolute path for the config file.
func WithAbsolutePath(path string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.AbsolutePath = path
	}
}

// WithDynamicDir allows setting a dynamic subdirectory for the configuration path.
func WithDynamicDir(dynamicDir string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.DynamicDir = dynamicDir
	}
}

// WithDefaults registers default values by dotted key. A key with a default can be
// overridden from the environment even when the file does not mention it.
func WithDefaults(defaults map[string]any) ReadConfigOption {
	return func(config *YamlReadConfig) {
		if config.Defaults == nil {
			config.Defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			config.Defaults[k] = v
		}
	}
}

// LoadConfig reads <dir>/<ENVIRONMENT>.yaml into conf. Environment variables override file
// values (key "a.b" is read from A_B) and string values of the form env://NAME are replaced
// by the value of NAME.
func LoadConfig(conf any, log *logger.Logger, options ...ReadConfigOption) error {
	config := &YamlReadConfig{RelativePath: relativePath}
	for _, option := range options {
		option(config)
	}

	pathToConfigDir, err := configDir(config, log)
	if err != nil {
		return err
	}

	currentEnv, err := env.Current()
	if err != nil {
		return errors.Wrap(err, "invalid environment")
	}

	filePath := filepath.Join(pathToConfigDir, currentEnv.String()+fileFormat)
	log.Info("reading config file", logger.String("path", filePath))

	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range config.Defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read configuration file %s", filePath)
	}

	for _, key := range v.AllKeys() {
		resolveEnvPlaceholder(v, key, log)
	}

	if err := v.Unmarshal(conf); err != nil {
		return errors.Wrap(err, "failed to unmarshal configuration")
	}
	return nil
}

func configDir(config *YamlReadConfig, log *logger.Logger) (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get current working directory")
	}

	// binaries run from target/ locally and from /app in docker, next to ./config
	if strings.Contains(currentDir, binaryDir) || strings.Contains(currentDir, binaryInDocker) {
		config.RelativePath = binaryPath
	}

	if config.DynamicDir != "" {
		config.RelativePath = filepath.Join(config.RelativePath, config.DynamicDir)
		if config.AbsolutePath != "" {
			config.AbsolutePath = filepath.Join(config.AbsolutePath, config.DynamicDir)
		}
	}

	if config.AbsolutePath != "" {
		return config.AbsolutePath, nil
	}
	log.Debug("using relative config path",
		logger.String("directory", currentDir),
		logger.String("path", config.RelativePath),
	)
	return config.RelativePath, nil
}

func resolveEnvPlaceholder(v *viper.Viper, key string, log *logger.Logger) {
	if resolved, changed := resolvePlaceholders(v.Get(key), log); changed {
		v.Set(key, resolved)
	}
}

// resolvePlaceholders replaces env:// strings, including those nested in lists and maps.
func resolvePlaceholders(value any, log *logger.Logger) (any, bool) {
	switch typed := value.(type) {
	case string:
		if !strings.HasPrefix(typed, envVarPrefix) {
			return typed, false
		}
		envVar := strings.TrimPrefix(typed, envVarPrefix)
		if envValue, exists := os.LookupEnv(envVar); exists {
			log.Info("set environment variable", logger.String("variableName", envVar))
			return envValue, true
		}
		log.Warn("environment variable not found", logger.String("variableName", envVar))
		return "", true
	case []any:
		changed := false
		for i, item := range typed {
			if resolved, ok := resolvePlaceholders(item, log); ok {
				typed[i] = resolved
				changed = true
			}
		}
		return typed, changed
	case map[string]any:
		changed := false
		for k, item := range typed {
			if resolved, ok := resolvePlaceholders(item, log); ok {
				typed[k] = resolved
				changed = true
			}
		}
		return typed, changed
	default:
		return value, false
	}
}
