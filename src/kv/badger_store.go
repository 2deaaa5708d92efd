package kv

import (
	"bytes"
	"context"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const valuePrefix = "kv"

// entry is what BadgerStore writes under a key. Version counts the writes to
// the key.
type entry struct {
	Value   int64
	Version uint64
}

func (e *entry) marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(e); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func (e *entry) unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(e)
}

// BadgerStore is a persistent Store. Every operation runs in its own badger
// transaction, so CompareAndSwap is atomic with respect to concurrent writers.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens, or creates, the database at path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger database %s", path)
	}

	store := &BadgerStore{
		db:   handle,
		path: path,
	}

	return store, nil
}

// StorePath returns the directory of the database.
func (s *BadgerStore) StorePath() string {
	return s.path
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Get implements the Store interface.
func (s *BadgerStore) Get(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var e *entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = s.dbGetEntry(txn, key)
		return err
	})
	if err != nil {
		return 0, err
	}

	if e == nil {
		return 0, notFound(key)
	}

	return e.Value, nil
}

// Version returns the number of writes applied to key, 0 if it does not
// exist.
func (s *BadgerStore) Version(key string) (uint64, error) {
	var e *entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = s.dbGetEntry(txn, key)
		return err
	})
	if err != nil || e == nil {
		return 0, err
	}
	return e.Version, nil
}

// Put implements the Store interface.
func (s *BadgerStore) Put(ctx context.Context, key string, value int64) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		e, err := s.dbGetEntry(txn, key)
		if err != nil {
			return err
		}
		return s.dbSetEntry(txn, key, e, value)
	})
}

// CompareAndSwap implements the Store interface.
func (s *BadgerStore) CompareAndSwap(ctx context.Context, key string, from, to int64, create bool) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		e, err := s.dbGetEntry(txn, key)
		if err != nil {
			return err
		}

		switch {
		case e == nil && !create:
			return notFound(key)
		case e != nil && e.Value != from:
			return conflict(key, from, e.Value)
		}

		return s.dbSetEntry(txn, key, e, to)
	})
}

// update runs fn in a read-write transaction, and runs it again when the
// commit conflicts with another transaction.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(fn)
		if err == badger.ErrConflict {
			continue
		}
		return err
	}
}

func (s *BadgerStore) dbGetEntry(txn *badger.Txn, key string) (*entry, error) {
	item, err := txn.Get(dbKey(key))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", key)
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", key)
	}

	e := new(entry)
	if err := e.unmarshal(data); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", key)
	}

	return e, nil
}

func (s *BadgerStore) dbSetEntry(txn *badger.Txn, key string, prev *entry, value int64) error {
	e := &entry{Value: value, Version: 1}
	if prev != nil {
		e.Version = prev.Version + 1
	}

	data, err := e.marshal()
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}

	if err := txn.Set(dbKey(key), data); err != nil {
		return errors.Wrapf(err, "writing %s", key)
	}

	return nil
}

func dbKey(key string) []byte {
	return []byte(valuePrefix + "_" + key)
}
