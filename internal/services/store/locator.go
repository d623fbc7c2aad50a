// Package store locates hierarchy stores on disk and opens the matching backend.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tyemirov/htree/internal/types"
)

const (
	errorLocateFormat = "%w: no store found in %q"
	errorStatFormat   = "%w: stat failed for %q: %w"
)

// Location is a positional argument split into the store on disk and the path inside it.
type Location struct {
	Argument     string
	FilePath     string
	InternalPath string
}

// DisplayPath names the rendered subtree the way the user addressed it.
func (location Location) DisplayPath() string {
	if location.InternalPath == types.RootPath {
		return location.FilePath
	}
	return location.FilePath + strings.TrimSuffix(location.InternalPath, types.PathSeparator)
}

// Locate splits argument at its longest prefix naming an existing store. The remainder is
// the in-store path, "/" when empty.
func Locate(argument string) (Location, error) {
	trimmed := strings.TrimRight(argument, types.PathSeparator)
	if trimmed == "" {
		trimmed = argument
	}
	candidate := trimmed
	for {
		isStore, err := storeCandidate(candidate)
		if err != nil {
			return Location{}, err
		}
		if isStore {
			internalPath := strings.TrimPrefix(trimmed, candidate)
			if !strings.HasPrefix(internalPath, types.PathSeparator) {
				internalPath = types.PathSeparator + internalPath
			}
			return Location{Argument: argument, FilePath: candidate, InternalPath: internalPath}, nil
		}
		separatorIndex := strings.LastIndex(candidate, types.PathSeparator)
		if separatorIndex <= 0 {
			return Location{}, fmt.Errorf(errorLocateFormat, types.ErrNodeNotFound, argument)
		}
		candidate = candidate[:separatorIndex]
	}
}

// storeCandidate reports whether path exists and can hold a store: a regular file or a
// directory laid out as a Pebble store.
func storeCandidate(path string) (bool, error) {
	info, err := os.Stat(filepath.FromSlash(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, fmt.Errorf(errorStatFormat, types.ErrStoreRead, path, err)
	}
	if !info.IsDir() {
		return true, nil
	}
	return isPebbleDirectory(path), nil
}
