package sqlitestore_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tyemirov/htree/internal/services/sqlitestore"
	"github.com/tyemirov/htree/internal/types"
)

const schemaStatements = `
CREATE TABLE nodes (
	id INTEGER PRIMARY KEY,
	parent_id INTEGER REFERENCES nodes(id),
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	dtype TEXT,
	shape TEXT,
	ordinal INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE annotations (
	node_id INTEGER NOT NULL REFERENCES nodes(id),
	name TEXT NOT NULL,
	value TEXT,
	ordinal INTEGER NOT NULL DEFAULT 0
);
`

const sampleRows = `
INSERT INTO nodes (id, parent_id, name, kind, dtype, shape, ordinal) VALUES
	(1, NULL, '', 'container', NULL, NULL, 0),
	(2, 1, 'group_1', 'container', NULL, NULL, 0),
	(3, 2, 'group_1_sub', 'container', NULL, NULL, 0),
	(4, 3, 'x', 'leaf', 'float64', '5,3', 0),
	(5, 2, 'x', 'leaf', 'float64', '5, 3', 1),
	(6, 1, 'x', 'leaf', 'int32', '4', 2),
	(7, 1, 'group_2', 'container', NULL, NULL, 1),
	(8, 7, 'count', 'leaf', 'int64', '', 0);
INSERT INTO annotations (node_id, name, value, ordinal) VALUES
	(1, 'value', '105', 1),
	(1, 'name', 'Sam', 0),
	(3, 'name', 'Dan', 0);
`

func createDatabase(t *testing.T, statements ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.db")
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()
	for _, statement := range statements {
		if _, err := database.Exec(statement); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
	return path
}

func TestStoreWalksInOrdinalOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := sqlitestore.Open(ctx, createDatabase(t, schemaStatements, sampleRows))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	var paths []string
	nodes := map[string]types.Node{}
	walkErr := store.Walk(ctx, "/", func(entry types.Entry) error {
		paths = append(paths, entry.Path)
		nodes[entry.Path] = entry.Node
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk: %v", walkErr)
	}
	expected := []string{"group_1", "group_1/group_1_sub", "group_1/group_1_sub/x", "group_1/x", "group_2", "group_2/count", "x"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
	if shape := nodes["group_1/x"].Shape; !reflect.DeepEqual(shape, []int{5, 3}) {
		t.Fatalf("unexpected shape %v", shape)
	}
	if count := nodes["group_2/count"]; !count.IsScalar() || count.DataType != "int64" {
		t.Fatalf("expected scalar int64, got %+v", count)
	}
	if names := nodes["group_1"].ChildNames; !reflect.DeepEqual(names, []string{"group_1_sub", "x"}) {
		t.Fatalf("unexpected child names %v", names)
	}

	root, err := store.Resolve(ctx, "")
	if err != nil {
		t.Fatalf("resolve root: %v", err)
	}
	expectedAnnotations := []types.Annotation{{Name: "name", Value: "Sam"}, {Name: "value", Value: "105"}}
	if !reflect.DeepEqual(root.Annotations, expectedAnnotations) {
		t.Fatalf("unexpected root annotations %v", root.Annotations)
	}
	sub, err := store.Resolve(ctx, "group_1/group_1_sub")
	if err != nil {
		t.Fatalf("resolve sub: %v", err)
	}
	if len(sub.Annotations) != 1 || sub.Annotations[0].Value != "Dan" {
		t.Fatalf("unexpected sub annotations %v", sub.Annotations)
	}
}

func TestStoreResolveErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := sqlitestore.Open(ctx, createDatabase(t, schemaStatements, sampleRows))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if _, err := store.Resolve(ctx, "group_1/missing"); !errors.Is(err, types.ErrNodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Walk(ctx, "x/deeper", func(types.Entry) error { return nil }); !errors.Is(err, types.ErrNodeNotFound) {
		t.Fatalf("expected not found below a leaf, got %v", err)
	}
}

func TestOpenRejectsInvalidDatabases(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	testCases := []struct {
		name          string
		path          func(t *testing.T) string
		expectedError error
	}{
		{
			name: "foreign_schema",
			path: func(t *testing.T) string {
				return createDatabase(t, "CREATE TABLE other (id INTEGER)")
			},
			expectedError: types.ErrUnsupportedFormat,
		},
		{
			name: "missing_root",
			path: func(t *testing.T) string {
				return createDatabase(t, schemaStatements)
			},
			expectedError: types.ErrStoreRead,
		},
		{
			name: "unknown_kind",
			path: func(t *testing.T) string {
				return createDatabase(t, schemaStatements, "INSERT INTO nodes (id, parent_id, name, kind) VALUES (1, NULL, '', 'link')")
			},
			expectedError: types.ErrStoreRead,
		},
		{
			name: "not_sqlite",
			path: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "garbage.db")
				if err := os.WriteFile(path, []byte("definitely not a database file, just text padding"), 0o600); err != nil {
					t.Fatalf("write: %v", err)
				}
				return path
			},
			expectedError: types.ErrStoreRead,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			store, err := sqlitestore.Open(ctx, testCase.path(t))
			if err == nil {
				store.Close()
				t.Fatalf("expected error")
			}
			if !errors.Is(err, testCase.expectedError) {
				t.Fatalf("expected %v, got %v", testCase.expectedError, err)
			}
		})
	}
}

func TestOpenEscapesFileNames(t *testing.T) {
	t.Parallel()

	source := createDatabase(t, schemaStatements, sampleRows)
	path := filepath.Join(filepath.Dir(source), "odd?name#100%.db")
	if err := os.Rename(source, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
	store, err := sqlitestore.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	node, err := store.Resolve(context.Background(), "/group_1/x")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(node.Shape, []int{5, 3}) {
		t.Fatalf("unexpected shape %v", node.Shape)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(source), "odd")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no stray database file, got %v", err)
	}
}
