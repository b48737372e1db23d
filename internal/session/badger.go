package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces session records inside the badger keyspace.
const keyPrefix = "session/"

// BadgerStore persists sessions in an embedded BadgerDB with native
// per-entry TTL. Low-latency local storage; no external service required.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// BadgerStoreOpts holds parameters for creating a BadgerStore.
type BadgerStoreOpts struct {
	// Path is the directory for the badger files. Ignored when InMemory.
	Path string
	// InMemory runs badger without disk persistence (tests, local mode).
	InMemory bool
	// TTL is the session lifetime, refreshed on every Save.
	// Defaults to DefaultTTL.
	TTL time.Duration
}

// NewBadgerStore opens the badger database and returns a session store.
func NewBadgerStore(opts BadgerStoreOpts) (*BadgerStore, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, fmt.Errorf("session: badger store: path is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	badgerOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithLogger(nil)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("session: open badger at %q: %w", opts.Path, err)
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

// Get loads the session for a conversation identity.
func (b *BadgerStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %q: %w", id, err)
	}
	return &s, nil
}

// Save writes the session and refreshes its TTL.
func (b *BadgerStore) Save(ctx context.Context, s *Session) error {
	if s.ConversationID == "" {
		return fmt.Errorf("session: save: conversation id is required")
	}
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal %q: %w", s.ConversationID, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+s.ConversationID), data).WithTTL(b.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("session: save %q: %w", s.ConversationID, err)
	}
	return nil
}

// Close closes the underlying badger database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
