package kvstore

import (
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a durable Store backed by goleveldb, giving the tree and
// ledger crash-safe persistence across process restarts.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a LevelDB store at dir.
func OpenLevelDB(dir string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(ns Namespace, key []byte) ([]byte, bool, error) {
	val, err := l.db.Get(namespacedKey(ns, key), nil)
	if err == leveldberrors.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (l *LevelDB) Put(ns Namespace, key, value []byte) error {
	return l.db.Put(namespacedKey(ns, key), value, nil)
}

func (l *LevelDB) Delete(ns Namespace, key []byte) error {
	return l.db.Delete(namespacedKey(ns, key), nil)
}

// DeleteNamespace removes every key stored under ns by iterating the
// namespace's prefix range and batch-deleting every entry found.
func (l *LevelDB) DeleteNamespace(ns Namespace) error {
	prefix := []byte{byte(ns)}
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return l.db.Write(batch, nil)
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}

func (l *LevelDB) NewBatch() Batch {
	return &levelDBBatch{db: l.db, batch: new(leveldb.Batch)}
}

type levelDBBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelDBBatch) Put(ns Namespace, key, value []byte) {
	b.batch.Put(namespacedKey(ns, key), value)
}

func (b *levelDBBatch) Delete(ns Namespace, key []byte) {
	b.batch.Delete(namespacedKey(ns, key))
}

func (b *levelDBBatch) Write() error {
	return b.db.Write(b.batch, nil)
}

func (b *levelDBBatch) Reset() {
	b.batch.Reset()
}

func (b *levelDBBatch) Len() int {
	return b.batch.Len()
}
