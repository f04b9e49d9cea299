// Package store persists relations in a Badger key-value database.
// Keys use order-preserving tuple encoding so a relation's schema and
// tuples are adjacent on disk and readable with a single prefix scan:
//
//	("schema", name)       -> msgpack []string of attributes
//	("tuple", name, index) -> msgpack []interface{} of values
package store

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"rsc.io/ordered"

	"github.com/wbrown/hyperjoin/relation"
)

// ErrNotFound indicates a relation name absent from the store.
var ErrNotFound = errors.New("relation not found")

// Store is a durable relation catalog.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store backed by memory only, for tests and
// throwaway sessions.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening in-memory store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes a relation, replacing any previous contents under the
// same name.
func (s *Store) Put(r *relation.Relation) error {
	if err := s.Delete(r.Name()); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	schema := make([]string, len(r.Attributes()))
	for i, a := range r.Attributes() {
		schema[i] = string(a)
	}
	schemaBytes, err := msgpack.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encoding schema of %s: %w", r.Name(), err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(ordered.Encode("schema", r.Name()), schemaBytes); err != nil {
			return err
		}
		for i, t := range r.Tuples() {
			value, err := msgpack.Marshal([]interface{}(t))
			if err != nil {
				return fmt.Errorf("encoding tuple %d of %s: %w", i, r.Name(), err)
			}
			if err := txn.Set(ordered.Encode("tuple", r.Name(), i), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get reads a relation by name.
func (s *Store) Get(name string) (*relation.Relation, error) {
	var attrs []relation.Attribute
	var tuples []relation.Tuple

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(ordered.Encode("schema", name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			var schema []string
			if err := msgpack.Unmarshal(val, &schema); err != nil {
				return fmt.Errorf("decoding schema of %s: %w", name, err)
			}
			attrs = make([]relation.Attribute, len(schema))
			for i, a := range schema {
				attrs[i] = relation.Attribute(a)
			}
			return nil
		}); err != nil {
			return err
		}

		prefix := ordered.Encode("tuple", name)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var raw []interface{}
				if err := msgpack.Unmarshal(val, &raw); err != nil {
					return fmt.Errorf("decoding tuple of %s: %w", name, err)
				}
				tuple := make(relation.Tuple, len(raw))
				for i, v := range raw {
					tuple[i] = normalizeValue(v)
				}
				tuples = append(tuples, tuple)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return relation.New(name, attrs, tuples)
}

// List returns the stored relation names in key order.
func (s *Store) List() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := ordered.Encode("schema")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var kind, name string
			if err := ordered.Decode(it.Item().Key(), &kind, &name); err != nil {
				return fmt.Errorf("decoding catalog key: %w", err)
			}
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Delete removes a relation. Returns ErrNotFound for unknown names.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(ordered.Encode("schema", name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return err
		}
		if err := txn.Delete(ordered.Encode("schema", name)); err != nil {
			return err
		}

		prefix := ordered.Encode("tuple", name)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// normalizeValue folds the integer and float widths msgpack may decode
// into the canonical value types joins compare on.
func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
