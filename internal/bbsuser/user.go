// Package bbsuser is the persistent user record store: one goleveldb
// database keyed by lower-cased alias, holding the fields the PPL runtime's
// predefined U_* variable block (internal/ppl/semantic's userVariables
// table) needs to bind into a running script, plus the login/security
// fields the session loop itself consults.
package bbsuser

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// ErrNotFound is returned when no record exists for the given alias.
var ErrNotFound = errors.New("bbsuser: no such user")

// Record is one user's persisted profile. Field names track the predefined
// U_* slots 1:1 (Name -> U_NAME, City -> U_CITY, ...) so the session
// runtime can bind every slot a script references without a lookup table.
type Record struct {
	Name      string
	City      string
	Password  string
	Alias     string
	Sec       int
	PageLen   int
	ExpDate   time.Time
	ExpSec    int
	BdPhone   string
	HvPhone   string
	Trans     string
	Cmnt1     string
	Cmnt2     string
	Notes     string
	Addr      string
	Ver       string
	Account   int
	ShortDesc bool
	Gender    string
	Birthdate string
	Email     string
	Web       string
	Scroll    bool
	LongHdr   bool
	Def79     bool
	Fse       bool
	Fsep      bool
	Cls       bool
	PwdExp    time.Time

	LastOn   time.Time
	TimesOn  int
}

// Store is a goleveldb-backed key/value collection of Records, keyed by the
// alias lower-cased (PCBoard aliases are case-insensitive).
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the leveldb database at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("bbsuser: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenMem opens an in-memory store, used by tests.
func OpenMem() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("bbsuser: open memstore: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func key(alias string) []byte {
	return []byte("user:" + strings.ToLower(strings.TrimSpace(alias)))
}

// GetUser loads the record for alias (PUTUSER/GETUSER in spec.md's
// predefined-procedure catalog work against this store).
func (s *Store) GetUser(alias string) (Record, error) {
	raw, err := s.db.Get(key(alias), nil)
	if err == leveldb.ErrNotFound {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("bbsuser: decode %s: %w", alias, err)
	}
	return rec, nil
}

// PutUser writes (creating or overwriting) the record for rec.Alias.
func (s *Store) PutUser(rec Record) error {
	if strings.TrimSpace(rec.Alias) == "" {
		return errors.New("bbsuser: record has no alias")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("bbsuser: encode %s: %w", rec.Alias, err)
	}
	return s.db.Put(key(rec.Alias), buf.Bytes(), nil)
}

// HasUser reports whether alias has a record, without decoding it.
func (s *Store) HasUser(alias string) (bool, error) {
	return s.db.Has(key(alias), nil)
}

// DeleteUser removes alias's record, if any.
func (s *Store) DeleteUser(alias string) error {
	return s.db.Delete(key(alias), nil)
}

// GetAltUser loads a record by alias, returning ErrNotFound wrapped with the
// alias so a caller logging a failed GETALTUSER call can name which lookup
// failed.
func (s *Store) GetAltUser(alias string) (Record, error) {
	rec, err := s.GetUser(alias)
	if errors.Is(err, ErrNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, alias)
	}
	return rec, err
}

// Each iterates every record in alias order, stopping at the first error fn
// returns. Used by the sysop user-list and by nightly expiration sweeps.
func (s *Store) Each(fn func(Record) error) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		var rec Record
		if err := gob.NewDecoder(bytes.NewReader(iter.Value())).Decode(&rec); err != nil {
			return fmt.Errorf("bbsuser: decode record: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}
