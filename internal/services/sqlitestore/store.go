// Package sqlitestore reads hierarchies persisted in SQLite databases.
//
// The database holds two tables. nodes(id, parent_id, name, kind, dtype, shape, ordinal) lists
// every node; the root is the only row without a parent, kind is "container" or "leaf" and
// shape is a comma separated list of dimensions that is empty for scalars.
// annotations(node_id, name, value, ordinal) lists node annotations.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tyemirov/htree/internal/hierarchy"
	"github.com/tyemirov/htree/internal/types"
)

const (
	driverName          = "sqlite3"
	uriScheme           = "file"
	readOnlyQuery       = "mode=ro"
	kindContainerColumn = "container"
	kindLeafColumn      = "leaf"
	shapeSeparator      = ","

	selectTablesQuery = `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('nodes', 'annotations')`
	selectRootQuery   = `SELECT id, name, kind, dtype, shape FROM nodes WHERE parent_id IS NULL ORDER BY id`
	selectChildQuery  = `SELECT id, name, kind, dtype, shape FROM nodes WHERE parent_id = ? ORDER BY ordinal, id`
	selectNamesQuery  = `SELECT name FROM nodes WHERE parent_id = ? ORDER BY ordinal, id`
	selectAttrsQuery  = `SELECT name, value FROM annotations WHERE node_id = ? ORDER BY ordinal, rowid`

	errorOpenFormat     = "%w: opening %s: %w"
	errorSchemaFormat   = "%w: %s is not a hierarchy database"
	errorRootFormat     = "%w: %s must hold exactly one root node, found %d"
	errorQueryFormat    = "%w: %s for node %d: %w"
	errorKindFormat     = "%w: node %d has unknown kind %q"
	errorShapeFormat    = "%w: node %d has invalid shape %q"
	errorCloseRowFormat = "%w: closing rows: %w"
)

// Store is a read-only view of a hierarchy database.
type Store struct {
	database *sql.DB
	root     hierarchy.Child[int64]
}

type nodeRow struct {
	id       int64
	name     string
	kind     string
	dataType sql.NullString
	shape    sql.NullString
}

// Open opens the database at path read-only and locates its root node.
func Open(ctx context.Context, path string) (*Store, error) {
	database, err := sql.Open(driverName, readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf(errorOpenFormat, types.ErrStoreRead, path, err)
	}
	store, err := newStore(ctx, database, path)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	return store, nil
}

// readOnlyDSN builds a read-only SQLite URI for path. Each path segment is escaped so that
// "?", "#" and "%" in file names are not read as URI syntax.
func readOnlyDSN(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for index, segment := range segments {
		segments[index] = url.PathEscape(segment)
	}
	dsn := url.URL{Scheme: uriScheme, Opaque: strings.Join(segments, "/"), RawQuery: readOnlyQuery}
	return dsn.String()
}

func newStore(ctx context.Context, database *sql.DB, path string) (*Store, error) {
	var tableCount int
	if err := database.QueryRowContext(ctx, selectTablesQuery).Scan(&tableCount); err != nil {
		return nil, fmt.Errorf(errorOpenFormat, types.ErrStoreRead, path, err)
	}
	if tableCount != 2 {
		return nil, fmt.Errorf(errorSchemaFormat, types.ErrUnsupportedFormat, path)
	}
	store := &Store{database: database}
	rows, err := store.queryNodes(ctx, selectRootQuery, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf(errorRootFormat, types.ErrStoreRead, path, len(rows))
	}
	root, err := store.toChild(ctx, rows[0])
	if err != nil {
		return nil, err
	}
	store.root = root
	return store, nil
}

// Close releases the database handle.
func (store *Store) Close() error {
	return store.database.Close()
}

// Resolve implements hierarchy.Source.
func (store *Store) Resolve(ctx context.Context, path string) (types.Node, error) {
	resolved, err := hierarchy.Resolve[int64](ctx, store, store.root, path)
	if err != nil {
		return types.Node{}, err
	}
	return resolved.Node, nil
}

// Walk implements hierarchy.Source.
func (store *Store) Walk(ctx context.Context, path string, visit func(types.Entry) error) error {
	resolved, err := hierarchy.Resolve[int64](ctx, store, store.root, path)
	if err != nil {
		return err
	}
	return hierarchy.Walk[int64](ctx, store, resolved, visit)
}

// Children implements hierarchy.Loader.
func (store *Store) Children(ctx context.Context, parentID int64) ([]hierarchy.Child[int64], error) {
	rows, err := store.queryNodes(ctx, selectChildQuery, parentID)
	if err != nil {
		return nil, err
	}
	children := make([]hierarchy.Child[int64], 0, len(rows))
	for _, row := range rows {
		child, err := store.toChild(ctx, row)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func (store *Store) toChild(ctx context.Context, row nodeRow) (hierarchy.Child[int64], error) {
	node := types.Node{Name: row.name}
	switch row.kind {
	case kindContainerColumn:
		node.Kind = types.NodeKindContainer
		names, err := store.childNames(ctx, row.id)
		if err != nil {
			return hierarchy.Child[int64]{}, err
		}
		node.ChildNames = names
	case kindLeafColumn:
		node.Kind = types.NodeKindLeaf
		node.DataType = row.dataType.String
		shape, err := parseShape(row.shape.String)
		if err != nil {
			return hierarchy.Child[int64]{}, fmt.Errorf(errorShapeFormat, types.ErrStoreRead, row.id, row.shape.String)
		}
		node.Shape = shape
	default:
		return hierarchy.Child[int64]{}, fmt.Errorf(errorKindFormat, types.ErrStoreRead, row.id, row.kind)
	}
	annotations, err := store.annotations(ctx, row.id)
	if err != nil {
		return hierarchy.Child[int64]{}, err
	}
	node.Annotations = annotations
	return hierarchy.Child[int64]{Handle: row.id, Node: node}, nil
}

func (store *Store) queryNodes(ctx context.Context, query string, parentID int64) (result []nodeRow, err error) {
	var arguments []any
	if query != selectRootQuery {
		arguments = append(arguments, parentID)
	}
	rows, err := store.database.QueryContext(ctx, query, arguments...)
	if err != nil {
		return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "listing children", parentID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf(errorCloseRowFormat, types.ErrStoreRead, closeErr)
		}
	}()
	for rows.Next() {
		var row nodeRow
		if scanErr := rows.Scan(&row.id, &row.name, &row.kind, &row.dataType, &row.shape); scanErr != nil {
			return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "scanning node", parentID, scanErr)
		}
		result = append(result, row)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "listing children", parentID, rowsErr)
	}
	return result, nil
}

func (store *Store) childNames(ctx context.Context, nodeID int64) (names []string, err error) {
	rows, err := store.database.QueryContext(ctx, selectNamesQuery, nodeID)
	if err != nil {
		return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "listing child names", nodeID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf(errorCloseRowFormat, types.ErrStoreRead, closeErr)
		}
	}()
	names = []string{}
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "scanning child name", nodeID, scanErr)
		}
		names = append(names, name)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "listing child names", nodeID, rowsErr)
	}
	return names, nil
}

func (store *Store) annotations(ctx context.Context, nodeID int64) (annotations []types.Annotation, err error) {
	rows, err := store.database.QueryContext(ctx, selectAttrsQuery, nodeID)
	if err != nil {
		return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "listing annotations", nodeID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf(errorCloseRowFormat, types.ErrStoreRead, closeErr)
		}
	}()
	for rows.Next() {
		var annotation types.Annotation
		var value sql.NullString
		if scanErr := rows.Scan(&annotation.Name, &value); scanErr != nil {
			return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "scanning annotation", nodeID, scanErr)
		}
		annotation.Value = value.String
		annotations = append(annotations, annotation)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf(errorQueryFormat, types.ErrStoreRead, "listing annotations", nodeID, rowsErr)
	}
	return annotations, nil
}

// parseShape turns "5,3" into [5 3]; an empty text is a scalar.
func parseShape(text string) ([]int, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, shapeSeparator)
	shape := make([]int, 0, len(parts))
	for _, part := range parts {
		dimension, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if dimension < 0 {
			return nil, errors.New("negative dimension")
		}
		shape = append(shape, dimension)
	}
	return shape, nil
}

var (
	_ hierarchy.Source        = (*Store)(nil)
	_ hierarchy.Loader[int64] = (*Store)(nil)
)
