package store

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/tyemirov/htree/internal/hierarchy"
	"github.com/tyemirov/htree/internal/services/pebblestore"
	"github.com/tyemirov/htree/internal/services/sqlitestore"
	"github.com/tyemirov/htree/internal/services/yamldoc"
)

const (
	logMessageOpening = "opening store"
	logFieldPath      = "path"
	logFieldFormat    = "format"
	logFieldInternal  = "internal_path"
)

// Handle is an open store.
type Handle interface {
	hierarchy.Source
	io.Closer
}

type documentHandle struct {
	*hierarchy.Tree
}

func (documentHandle) Close() error {
	return nil
}

// Open detects the format of location and opens it with the matching backend.
func Open(ctx context.Context, location Location, logger *zap.Logger) (Handle, error) {
	format, err := DetectFormat(location.FilePath)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug(logMessageOpening,
			zap.String(logFieldPath, location.FilePath),
			zap.String(logFieldFormat, string(format)),
			zap.String(logFieldInternal, location.InternalPath),
		)
	}
	switch format {
	case FormatSQLite:
		database, err := sqlitestore.Open(ctx, location.FilePath)
		if err != nil {
			return nil, err
		}
		return database, nil
	case FormatPebble:
		database, err := pebblestore.Open(location.FilePath)
		if err != nil {
			return nil, err
		}
		return database, nil
	default:
		tree, err := yamldoc.Load(location.FilePath)
		if err != nil {
			return nil, err
		}
		return documentHandle{Tree: tree}, nil
	}
}
