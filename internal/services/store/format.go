package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tyemirov/htree/internal/types"
)

// Format names a supported store layout.
type Format string

const (
	FormatDocument Format = "document"
	FormatSQLite   Format = "sqlite"
	FormatPebble   Format = "pebble"

	pebbleMarkerFile = "CURRENT"
	magicLength      = 16

	errorHDF5Format    = "%w: %s is an HDF5 file; convert it to a YAML, SQLite or Pebble store first"
	errorUnknownFormat = "%w: cannot determine the store format of %s"
	errorReadFormat    = "%w: reading %s: %w"
)

var (
	sqliteMagic = []byte("SQLite format 3\x00")
	hdf5Magic   = []byte("\x89HDF\r\n\x1a\n")

	documentExtensions = map[string]struct{}{".yaml": {}, ".yml": {}, ".json": {}}
	sqliteExtensions   = map[string]struct{}{".db": {}, ".sqlite": {}, ".sqlite3": {}}
)

// DetectFormat inspects path and reports which backend reads it. Directories must be Pebble
// stores. Files are recognized by their signature first and their extension second.
func DetectFormat(path string) (Format, error) {
	if isPebbleDirectory(path) {
		return FormatPebble, nil
	}
	header, err := readHeader(path)
	if err != nil {
		return "", err
	}
	switch {
	case bytes.HasPrefix(header, sqliteMagic):
		return FormatSQLite, nil
	case bytes.HasPrefix(header, hdf5Magic):
		return "", fmt.Errorf(errorHDF5Format, types.ErrUnsupportedFormat, path)
	}
	extension := strings.ToLower(filepath.Ext(path))
	if _, ok := documentExtensions[extension]; ok {
		return FormatDocument, nil
	}
	if _, ok := sqliteExtensions[extension]; ok {
		return FormatSQLite, nil
	}
	return "", fmt.Errorf(errorUnknownFormat, types.ErrUnsupportedFormat, path)
}

func readHeader(path string) ([]byte, error) {
	file, err := os.Open(filepath.FromSlash(path)) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf(errorReadFormat, types.ErrStoreRead, path, err)
	}
	defer file.Close()
	header := make([]byte, magicLength)
	count, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf(errorReadFormat, types.ErrStoreRead, path, err)
	}
	return header[:count], nil
}

func isPebbleDirectory(path string) bool {
	info, err := os.Stat(filepath.Join(filepath.FromSlash(path), pebbleMarkerFile))
	return err == nil && !info.IsDir()
}
