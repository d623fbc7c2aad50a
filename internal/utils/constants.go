package utils

const (
	// GlobalConfigDirectoryName is the directory below the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".htree"
	// ConfigFileName names the global configuration file.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName names the configuration file read from the working directory.
	LocalConfigFileName = ".htree.yaml"
	// ConfigFileType tells viper how to decode configuration files regardless of their extension.
	ConfigFileType = "yaml"
	// GitDirectoryName is the repository metadata directory consulted for version lookup.
	GitDirectoryName = ".git"
)

const (
	// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal command failures.
	ApplicationExecutionFailedMessage = "htree failed"
)
