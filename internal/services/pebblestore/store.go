// Package pebblestore reads hierarchies persisted in Pebble key-value stores.
//
// Node records live under "n/" followed by the 8-byte big-endian node id and hold a JSON
// document. Child links live under "c/", the 8-byte parent id, "/" and the 8-byte ordinal, and
// hold the 8-byte child id. The root node has id 0.
package pebblestore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/tyemirov/htree/internal/hierarchy"
	"github.com/tyemirov/htree/internal/types"
)

// RootID identifies the root node record.
const RootID uint64 = 0

const (
	nodePrefix          = "n/"
	childPrefix         = "c/"
	keySeparator        = '/'
	idWidth             = 8
	recordKindContainer = "container"
	recordKindLeaf      = "leaf"

	errorOpenFormat   = "%w: opening %s: %w"
	errorRecordFormat = "%w: node %d: %w"
	errorMissingNode  = "%w: node %d has no record"
	errorKindFormat   = "%w: node %d has unknown kind %q"
	errorLinkFormat   = "%w: malformed child link %x"
	errorIterFormat   = "%w: listing children of node %d: %w"
)

// Record is the JSON document stored for every node.
type Record struct {
	Name        string             `json:"name"`
	Kind        string             `json:"kind"`
	DataType    string             `json:"dtype,omitempty"`
	Shape       []int              `json:"shape,omitempty"`
	Annotations []RecordAnnotation `json:"annotations,omitempty"`
}

// RecordAnnotation is one annotation of a Record.
type RecordAnnotation struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Store is a read-only view of a Pebble hierarchy store.
type Store struct {
	database *pebble.DB
	root     hierarchy.Child[uint64]
}

// Open opens the store directory read-only.
func Open(directory string) (*Store, error) {
	return open(directory, vfs.Default)
}

func open(directory string, fileSystem vfs.FS) (*Store, error) {
	database, err := pebble.Open(directory, &pebble.Options{FS: fileSystem, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf(errorOpenFormat, types.ErrStoreRead, directory, err)
	}
	store := &Store{database: database}
	root, err := store.load(RootID)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	store.root = root
	return store, nil
}

// Close releases the underlying database.
func (store *Store) Close() error {
	return store.database.Close()
}

// Resolve implements hierarchy.Source.
func (store *Store) Resolve(ctx context.Context, path string) (types.Node, error) {
	resolved, err := hierarchy.Resolve[uint64](ctx, store, store.root, path)
	if err != nil {
		return types.Node{}, err
	}
	return resolved.Node, nil
}

// Walk implements hierarchy.Source.
func (store *Store) Walk(ctx context.Context, path string, visit func(types.Entry) error) error {
	resolved, err := hierarchy.Resolve[uint64](ctx, store, store.root, path)
	if err != nil {
		return err
	}
	return hierarchy.Walk[uint64](ctx, store, resolved, visit)
}

// Children implements hierarchy.Loader.
func (store *Store) Children(ctx context.Context, parentID uint64) ([]hierarchy.Child[uint64], error) {
	identifiers, err := store.childIDs(parentID)
	if err != nil {
		return nil, err
	}
	children := make([]hierarchy.Child[uint64], 0, len(identifiers))
	for _, identifier := range identifiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child, err := store.load(identifier)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func (store *Store) load(identifier uint64) (hierarchy.Child[uint64], error) {
	record, err := store.record(identifier)
	if err != nil {
		return hierarchy.Child[uint64]{}, err
	}

	node := types.Node{Name: record.Name}
	switch record.Kind {
	case recordKindContainer:
		node.Kind = types.NodeKindContainer
		names, err := store.childNames(identifier)
		if err != nil {
			return hierarchy.Child[uint64]{}, err
		}
		node.ChildNames = names
	case recordKindLeaf:
		node.Kind = types.NodeKindLeaf
		node.DataType = record.DataType
		node.Shape = record.Shape
	default:
		return hierarchy.Child[uint64]{}, fmt.Errorf(errorKindFormat, types.ErrStoreRead, identifier, record.Kind)
	}
	for _, annotation := range record.Annotations {
		node.Annotations = append(node.Annotations, types.Annotation{Name: annotation.Name, Value: annotation.Value})
	}
	return hierarchy.Child[uint64]{Handle: identifier, Node: node}, nil
}

func (store *Store) childNames(parentID uint64) ([]string, error) {
	identifiers, err := store.childIDs(parentID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		record, err := store.record(identifier)
		if err != nil {
			return nil, err
		}
		names = append(names, record.Name)
	}
	return names, nil
}

func (store *Store) record(identifier uint64) (Record, error) {
	value, closer, err := store.database.Get(NodeKey(identifier))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, fmt.Errorf(errorMissingNode, types.ErrStoreRead, identifier)
	}
	if err != nil {
		return Record{}, fmt.Errorf(errorRecordFormat, types.ErrStoreRead, identifier, err)
	}
	defer closer.Close()
	var record Record
	if err := json.Unmarshal(value, &record); err != nil {
		return Record{}, fmt.Errorf(errorRecordFormat, types.ErrStoreRead, identifier, err)
	}
	return record, nil
}

// childIDs lists the children of parentID in ordinal order.
func (store *Store) childIDs(parentID uint64) (identifiers []uint64, err error) {
	lower := childKeyPrefix(parentID)
	upper := childKeyPrefix(parentID + 1)
	iterator, err := store.database.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf(errorIterFormat, types.ErrStoreRead, parentID, err)
	}
	defer func() {
		if closeErr := iterator.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf(errorIterFormat, types.ErrStoreRead, parentID, closeErr)
		}
	}()
	for valid := iterator.First(); valid; valid = iterator.Next() {
		value := iterator.Value()
		if len(value) != idWidth {
			return nil, fmt.Errorf(errorLinkFormat, types.ErrStoreRead, iterator.Key())
		}
		identifiers = append(identifiers, binary.BigEndian.Uint64(value))
	}
	if iterErr := iterator.Error(); iterErr != nil {
		return nil, fmt.Errorf(errorIterFormat, types.ErrStoreRead, parentID, iterErr)
	}
	return identifiers, nil
}

// NodeKey returns the record key of a node.
func NodeKey(identifier uint64) []byte {
	key := make([]byte, 0, len(nodePrefix)+idWidth)
	key = append(key, nodePrefix...)
	return binary.BigEndian.AppendUint64(key, identifier)
}

// ChildKey returns the link key placing a child at ordinal below parentID.
func ChildKey(parentID uint64, ordinal uint64) []byte {
	key := childKeyPrefix(parentID)
	return binary.BigEndian.AppendUint64(key, ordinal)
}

// ChildValue encodes a child id as stored in a link.
func ChildValue(identifier uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, idWidth), identifier)
}

func childKeyPrefix(parentID uint64) []byte {
	key := make([]byte, 0, len(childPrefix)+idWidth+1+idWidth)
	key = append(key, childPrefix...)
	key = binary.BigEndian.AppendUint64(key, parentID)
	return append(key, keySeparator)
}

var (
	_ hierarchy.Source         = (*Store)(nil)
	_ hierarchy.Loader[uint64] = (*Store)(nil)
)
