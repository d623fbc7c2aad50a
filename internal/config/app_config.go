package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tyemirov/htree/internal/types"
	"github.com/tyemirov/htree/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds configured defaults.
type ApplicationConfiguration struct {
	Tree TreeConfiguration `mapstructure:"tree"`
}

// TreeConfiguration defines defaults for rendering. Unset fields are nil or empty so that a
// later source only overrides what it names.
type TreeConfiguration struct {
	Verbose    *bool   `mapstructure:"verbose"`
	Attributes *bool   `mapstructure:"attributes"`
	Groups     *bool   `mapstructure:"groups"`
	Level      *int    `mapstructure:"level"`
	Pattern    *string `mapstructure:"pattern"`
	Color      string  `mapstructure:"color"`
	Clipboard  *bool   `mapstructure:"clipboard"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, required, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath, required)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	if err := merged.Validate(); err != nil {
		return ApplicationConfiguration{}, err
	}
	return merged, nil
}

// resolveLocalConfigPath returns the local configuration path and whether it must exist.
func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, bool, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, true, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", true, fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, true, nil
		}
		return filepath.Join(workingDirectory, explicitPath), true, nil
	}
	if workingDirectory == "" {
		return "", false, nil
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName), false, nil
}

func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType(utils.ConfigFileType)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Validate rejects values no renderer can honor.
func (config ApplicationConfiguration) Validate() error {
	if config.Tree.Level != nil && *config.Tree.Level < 0 {
		return fmt.Errorf("%w: configured level %d is negative", types.ErrInvalidOptions, *config.Tree.Level)
	}
	return nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Tree = result.Tree.merge(override.Tree)
	return result
}

func (config TreeConfiguration) merge(override TreeConfiguration) TreeConfiguration {
	result := config
	if override.Verbose != nil {
		result.Verbose = cloneBool(override.Verbose)
	}
	if override.Attributes != nil {
		result.Attributes = cloneBool(override.Attributes)
	}
	if override.Groups != nil {
		result.Groups = cloneBool(override.Groups)
	}
	if override.Level != nil {
		result.Level = cloneInt(override.Level)
	}
	if override.Pattern != nil {
		result.Pattern = cloneString(override.Pattern)
	}
	if override.Color != "" {
		result.Color = override.Color
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

// TreeOptions converts the configured defaults into render options.
func (config TreeConfiguration) TreeOptions() types.TreeOptions {
	var options types.TreeOptions
	if config.Verbose != nil {
		options.Verbose = *config.Verbose
	}
	if config.Attributes != nil {
		options.ShowAnnotations = *config.Attributes
	}
	if config.Groups != nil {
		options.ContainersOnly = *config.Groups
	}
	if config.Level != nil {
		options.DepthLimit = *config.Level
	}
	if config.Pattern != nil {
		options.NamePattern = *config.Pattern
	}
	return options
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
