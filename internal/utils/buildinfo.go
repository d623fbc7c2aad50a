// Package utils provides the logger constructor, version lookup and shared constants.
package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion        = "unknown"
	develVersion          = "(devel)"
	revisionSettingKey    = "vcs.revision"
	modifiedSettingKey    = "vcs.modified"
	dirtySuffix           = "-dirty"
	shortRevisionLength   = 12
	revisionVersionFormat = "devel-%s"
)

// Version is set at link time with -ldflags "-X github.com/tyemirov/htree/internal/utils.Version=v1.2.3".
var Version string

// GetApplicationVersion reports the linked version, then the module version, then the VCS
// revision stamped by the Go toolchain, and finally git describe output when run from a checkout.
func GetApplicationVersion() string {
	if Version != "" {
		return Version
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != develVersion {
			return buildInfo.Main.Version
		}
		if revision := revisionFromSettings(buildInfo.Settings); revision != "" {
			return fmt.Sprintf(revisionVersionFormat, revision)
		}
	}

	gitDirectoryPath, gitDirectoryError := findGitDirectory(".")
	if gitDirectoryError == nil && gitDirectoryPath != "" {
		// #nosec G204
		gitDescribeCommand := exec.Command("git", "describe", "--tags", "--always", "--dirty")
		gitDescribeCommand.Dir = gitDirectoryPath
		gitDescribeOutput, gitDescribeError := gitDescribeCommand.Output()
		if gitDescribeError == nil && len(gitDescribeOutput) > 0 {
			return strings.TrimSpace(string(gitDescribeOutput))
		}
	}

	return unknownVersion
}

func revisionFromSettings(settings []debug.BuildSetting) string {
	var revision string
	var modified bool
	for _, setting := range settings {
		switch setting.Key {
		case revisionSettingKey:
			revision = setting.Value
		case modifiedSettingKey:
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return ""
	}
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}
	if modified {
		revision += dirtySuffix
	}
	return revision
}

// findGitDirectory searches upward from startDirectory for the directory holding .git.
func findGitDirectory(startDirectory string) (string, error) {
	absoluteStartDirectory, errorAbsolute := filepath.Abs(startDirectory)
	if errorAbsolute != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", startDirectory, errorAbsolute)
	}

	currentDirectory := absoluteStartDirectory
	for {
		if fileInformation, errorStat := os.Stat(filepath.Join(currentDirectory, GitDirectoryName)); errorStat == nil && fileInformation.IsDir() {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}

	return "", fmt.Errorf(".git directory not found in or above %s", absoluteStartDirectory)
}
