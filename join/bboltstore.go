package join

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"path/filepath"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"
)

var (
	childBucket  = []byte("child")
	parentBucket = []byte("parent")
)

// BBoltProvider is the disk-backed spillable StoreProvider named in spec
// §6 (childSideJoinStoreProvider / parentSideJoinConditionStoreProvider).
// Each relation's child store and parent store get their own bbolt files
// under Dir so concurrent relations never contend on one database's writer
// lock.
type BBoltProvider struct {
	Dir string
	seq uint64
}

// NewBBoltProvider roots spillable join stores at dir, which must already
// exist.
func NewBBoltProvider(dir string) *BBoltProvider {
	return &BBoltProvider{Dir: dir}
}

func (p *BBoltProvider) openDB(relationID, side string) (*bolt.DB, error) {
	n := atomic.AddUint64(&p.seq, 1)
	path := filepath.Join(p.Dir, fmt.Sprintf("%s-%s-%d.db", sanitize(relationID), side, n))
	return bolt.Open(path, 0o600, nil)
}

func sanitize(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

// OpenChild implements StoreProvider.
func (p *BBoltProvider) OpenChild(relationID string) (ChildStore, error) {
	db, err := p.openDB(relationID, "child")
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(childBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &bboltChildStore{db: db}, nil
}

// OpenParent implements StoreProvider.
func (p *BBoltProvider) OpenParent(relationID string) (ParentStore, error) {
	db, err := p.openDB(relationID, "parent")
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(parentBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &bboltParentStore{db: db}, nil
}

type bboltChildStore struct {
	db  *bolt.DB
	seq uint64
}

func (s *bboltChildStore) Append(row ChildRow) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(row); err != nil {
		return err
	}
	seq := atomic.AddUint64(&s.seq, 1)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(childBucket).Put(itob(seq), buf.Bytes())
	})
}

func (s *bboltChildStore) All() ([]ChildRow, error) {
	var rows []ChildRow
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(childBucket).ForEach(func(k, v []byte) error {
			var row ChildRow
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&row); err != nil {
				return err
			}
			rows = append(rows, row)
			return nil
		})
	})
	return rows, err
}

func (s *bboltChildStore) Close() error { return s.db.Close() }

type bboltParentStore struct {
	db  *bolt.DB
	seq uint64
}

func (s *bboltParentStore) Register(entry ParentEntry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return err
	}
	seq := atomic.AddUint64(&s.seq, 1)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(parentBucket).Put(itob(seq), buf.Bytes())
	})
}

func (s *bboltParentStore) Lookup(joinValues []string) ([]TermRepr, error) {
	entries, err := s.All()
	if err != nil {
		return nil, err
	}
	key := joinKey(joinValues)
	var out []TermRepr
	for _, e := range entries {
		if joinKey(e.JoinValues) == key {
			out = append(out, e.Subject)
		}
	}
	return out, nil
}

func (s *bboltParentStore) All() ([]ParentEntry, error) {
	var entries []ParentEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(parentBucket).ForEach(func(k, v []byte) error {
			var e ParentEntry
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

func (s *bboltParentStore) Close() error { return s.db.Close() }

func itob(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v & 0xff)
		v >>= 8
	}
	return b
}
