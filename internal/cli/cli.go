// Package cli provides the command line interface.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/htree/internal/commands"
	"github.com/tyemirov/htree/internal/config"
	"github.com/tyemirov/htree/internal/output"
	"github.com/tyemirov/htree/internal/services/clipboard"
	"github.com/tyemirov/htree/internal/services/store"
	"github.com/tyemirov/htree/internal/types"
	"github.com/tyemirov/htree/internal/utils"
)

const (
	verboseFlagName    = "verbose"
	verboseShorthand   = "v"
	attributesFlagName = "attributes"
	attributesShort    = "a"
	groupsFlagName     = "groups"
	groupsShorthand    = "g"
	levelFlagName      = "level"
	levelShorthand     = "L"
	patternFlagName    = "pattern"
	patternShorthand   = "p"
	colorFlagName      = "color"
	copyFlagName       = "copy"
	configFlagName     = "config"
	debugFlagName      = "debug"
	versionFlagName    = "version"
	forceFlagName      = "force"
	globalFlagName     = "global"

	rootUse              = "htree <file[/path]>..."
	rootShortDescription = "display the hierarchy of a data store as a tree"
	rootLongDescription  = `htree draws groups, datasets and attributes of hierarchical data stores the way
tree draws directories. A store is a YAML or JSON document, a SQLite database or a Pebble
directory. Append an in-store path to the file name to render a subtree only.`
	rootUsageExample = `  # Render a whole store with shapes, types and totals
  htree -v data.yaml

  # Render two levels of one group including attributes
  htree -a -L 2 data.db/group_1

  # Show only groups whose path contains "sub"
  htree -g -p sub data.pebble`
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write a default configuration file to ./.htree.yaml, or to ~/.htree/config.yaml with --global.`

	verboseFlagDescription    = "show shapes, data types, item counts and totals"
	attributesFlagDescription = "show annotations below their node"
	groupsFlagDescription     = "show containers only"
	levelFlagDescription      = "hide nodes at depth LEVEL and below (0 shows everything)"
	patternFlagDescription    = "show only nodes whose path contains PATTERN"
	colorFlagDescription      = "color labels: auto, always or never"
	copyFlagDescription       = "also copy the uncolored output to the clipboard"
	configFlagDescription     = "read configuration from this file instead of ./.htree.yaml"
	debugFlagDescription      = "log store selection and render totals"
	versionFlagDescription    = "display application version"
	forceFlagDescription      = "overwrite an existing configuration file"
	globalFlagDescription     = "write the configuration below the home directory"

	versionTemplate           = "htree version: %s\n"
	initWrittenTemplate       = "configuration written to %s\n"
	missingArgumentsMessage   = "requires at least one store argument"
	errorRenderFormat         = "%s: %w"
	errorColorFormat          = "--%s: %w"
	errorLevelFormat          = "%w: --%s must not be negative"
	logMessageRendered        = "rendered"
	logMessageConfiguration   = "configuration"
	logFieldArgument          = "argument"
	logFieldContainers        = "containers"
	logFieldLeaves            = "leaves"
	logFieldOptions           = "options"
	logFieldColor             = "color"
	inputSeparatorLine        = ""
	concurrentRendersPerCore  = 2
	defaultConfigurationValue = ""
)

var errMissingArguments = errors.New(missingArgumentsMessage)

// applicationDependencies are the process resources a command works with.
type applicationDependencies struct {
	logger   *zap.Logger
	logLevel zap.AtomicLevel
	stdout   io.Writer
	// colorTarget is consulted for terminal detection when the color mode is auto.
	colorTarget *os.File
	copier      clipboard.Copier
}

// treeFlags holds the values of the root command flags.
type treeFlags struct {
	verbose    bool
	attributes bool
	groups     bool
	level      int
	pattern    string
	color      string
	copy       bool
	configPath string
	debug      bool
	version    bool
}

// Execute runs the htree application.
func Execute(logger *zap.Logger, logLevel zap.AtomicLevel) error {
	dependencies := applicationDependencies{
		logger:      logger,
		logLevel:    logLevel,
		stdout:      os.Stdout,
		colorTarget: os.Stdout,
		copier:      clipboard.NewService(),
	}
	rootCommand := createRootCommand(dependencies)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(dependencies applicationDependencies) *cobra.Command {
	var flags treeFlags

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			if flags.version {
				_, err := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return err
			}
			if len(arguments) == 0 {
				return errMissingArguments
			}
			if flags.debug {
				dependencies.logLevel.SetLevel(zapcore.DebugLevel)
			}
			settings, err := resolveSettings(command, flags)
			if err != nil {
				return err
			}
			dependencies.logger.Debug(logMessageConfiguration,
				zap.Any(logFieldOptions, settings.options),
				zap.String(logFieldColor, string(settings.colorMode)),
			)
			return runTree(command.Context(), dependencies, arguments, settings)
		},
	}
	rootCommand.SetOut(dependencies.stdout)

	flagSet := rootCommand.Flags()
	registerBooleanFlag(flagSet, &flags.verbose, verboseFlagName, verboseShorthand, false, verboseFlagDescription)
	registerBooleanFlag(flagSet, &flags.attributes, attributesFlagName, attributesShort, false, attributesFlagDescription)
	registerBooleanFlag(flagSet, &flags.groups, groupsFlagName, groupsShorthand, false, groupsFlagDescription)
	flagSet.IntVarP(&flags.level, levelFlagName, levelShorthand, 0, levelFlagDescription)
	flagSet.StringVarP(&flags.pattern, patternFlagName, patternShorthand, "", patternFlagDescription)
	flagSet.StringVar(&flags.color, colorFlagName, string(output.ColorAuto), colorFlagDescription)
	registerCopyFlag(flagSet, &flags.copy)
	flagSet.StringVar(&flags.configPath, configFlagName, defaultConfigurationValue, configFlagDescription)
	registerBooleanFlag(flagSet, &flags.debug, debugFlagName, "", false, debugFlagDescription)
	registerBooleanFlag(flagSet, &flags.version, versionFlagName, "", false, versionFlagDescription)

	rootCommand.AddCommand(createInitCommand())
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand() *cobra.Command {
	var force bool
	var global bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(command.OutOrStdout(), initWrittenTemplate, path)
			return err
		},
	}
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, "", false, forceFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, "", false, globalFlagDescription)
	return initCommand
}

// treeSettings are the effective options once configuration files and flags are merged.
type treeSettings struct {
	options   types.TreeOptions
	colorMode output.ColorMode
	copy      bool
}

// resolveSettings loads configuration and lets every flag the user set explicitly win.
func resolveSettings(command *cobra.Command, flags treeFlags) (treeSettings, error) {
	configuration, err := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: flags.configPath})
	if err != nil {
		return treeSettings{}, err
	}
	settings := treeSettings{options: configuration.Tree.TreeOptions()}
	changed := command.Flags().Changed

	if changed(verboseFlagName) {
		settings.options.Verbose = flags.verbose
	}
	if changed(attributesFlagName) {
		settings.options.ShowAnnotations = flags.attributes
	}
	if changed(groupsFlagName) {
		settings.options.ContainersOnly = flags.groups
	}
	if changed(levelFlagName) {
		if flags.level < 0 {
			return treeSettings{}, fmt.Errorf(errorLevelFormat, types.ErrInvalidOptions, levelFlagName)
		}
		settings.options.DepthLimit = flags.level
	}
	if changed(patternFlagName) {
		settings.options.NamePattern = flags.pattern
	}

	colorValue := configuration.Tree.Color
	if changed(colorFlagName) || colorValue == "" {
		colorValue = flags.color
	}
	colorMode, err := output.ParseColorMode(colorValue)
	if err != nil {
		return treeSettings{}, fmt.Errorf(errorColorFormat, colorFlagName, err)
	}
	settings.colorMode = colorMode

	if configuration.Tree.Clipboard != nil {
		settings.copy = *configuration.Tree.Clipboard
	}
	if changed(copyFlagName) {
		settings.copy = flags.copy
	}
	return settings, nil
}

// renderResult is the buffered output of one positional argument.
type renderResult struct {
	buffer bytes.Buffer
	err    error
}

// runTree renders every argument concurrently, then prints the buffers in argument order
// separated by a blank line. Printing stops after the first failed argument; the lines it
// produced before failing are printed first.
func runTree(ctx context.Context, dependencies applicationDependencies, arguments []string, settings treeSettings) error {
	styler := commands.LabelStyler(commands.PlainStyler{})
	if output.ColorEnabled(settings.colorMode, dependencies.colorTarget) {
		styler = output.NewColorStyler()
	}
	renderer := commands.NewTreeRenderer(styler)

	results := make([]renderResult, len(arguments))
	var group errgroup.Group
	group.SetLimit(runtime.NumCPU() * concurrentRendersPerCore)
	for index, argument := range arguments {
		index, argument := index, argument
		group.Go(func() error {
			results[index].err = renderArgument(ctx, dependencies.logger, renderer, argument, settings.options, &results[index].buffer)
			return nil
		})
	}
	_ = group.Wait()

	var printed bytes.Buffer
	destination := io.MultiWriter(dependencies.stdout, &printed)
	var firstErr error
	for index := range results {
		if index > 0 {
			if _, err := fmt.Fprintln(destination, inputSeparatorLine); err != nil {
				return err
			}
		}
		if _, err := destination.Write(results[index].buffer.Bytes()); err != nil {
			return err
		}
		if results[index].err != nil {
			firstErr = fmt.Errorf(errorRenderFormat, arguments[index], results[index].err)
			break
		}
	}

	if settings.copy && printed.Len() > 0 {
		if err := copyRenderedOutput(dependencies.copier, printed.String()); err != nil {
			if firstErr != nil {
				return errors.Join(firstErr, err)
			}
			return err
		}
	}
	return firstErr
}

// renderArgument locates, opens and renders one positional argument into destination.
func renderArgument(
	ctx context.Context,
	logger *zap.Logger,
	renderer *commands.TreeRenderer,
	argument string,
	options types.TreeOptions,
	destination io.Writer,
) (err error) {
	location, err := store.Locate(argument)
	if err != nil {
		return err
	}
	handle, err := store.Open(ctx, location, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	sink := output.NewWriterSink(destination)
	counters, renderErr := renderer.Render(ctx, handle, location.InternalPath, location.DisplayPath(), options, sink)
	if flushErr := sink.Flush(); flushErr != nil && renderErr == nil {
		renderErr = flushErr
	}
	if renderErr != nil {
		return renderErr
	}
	logger.Debug(logMessageRendered,
		zap.String(logFieldArgument, argument),
		zap.Int(logFieldContainers, counters.Containers),
		zap.Int(logFieldLeaves, counters.Leaves),
	)
	return nil
}
