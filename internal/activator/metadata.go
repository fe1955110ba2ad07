package activator

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// MetadataStore persists deployment Records in one badger database, keyed by
// deployment ID; it does not keep a separate database per deployment.
// BadgerDB's default options fsync on commit, so a Record written before a
// bootstrap task runs is guaranteed durable before that task can have any
// observable effect — the property the crash-survival requirement in §4.8
// depends on.
type MetadataStore struct {
	db *badger.DB
}

// OpenMetadataStore opens (creating if necessary) the badger database at
// path.
func OpenMetadataStore(path string) (*MetadataStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("activator: open deployment metadata store: %w", err)
	}
	return &MetadataStore{db: db}, nil
}

// Put writes (or overwrites) r, keyed by r.ID.
func (s *MetadataStore) Put(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("activator: marshal deployment record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(r.ID), data)
	})
}

// Get reads back the Record for deploymentID. ok is false if none was
// ever written.
func (s *MetadataStore) Get(deploymentID string) (r Record, ok bool, err error) {
	txnErr := s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(deploymentID))
		if getErr != nil {
			return getErr
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if errors.Is(txnErr, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if txnErr != nil {
		return Record{}, false, fmt.Errorf("activator: read deployment record %s: %w", deploymentID, txnErr)
	}
	return r, true, nil
}

// pendingKey holds the ID of whichever deployment currently has a
// kernel-update bootstrap in flight, so a freshly restarted process can
// find it without already knowing the deployment ID. It stores only the
// ID, never a copy of the Record, so GetPending always resolves through
// the same per-ID record advanceCursor keeps current — there is no second
// copy of Cursor to fall out of sync after a crash mid-bootstrap.
const pendingKey = "__pending__"

// MarkPending persists r under its own ID and records that ID as the
// pending deployment, so ResumeBootstrap can find it at startup without
// being told which deployment is in flight.
func (s *MetadataStore) MarkPending(r Record) error {
	if err := s.Put(r); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(pendingKey), []byte(r.ID))
	})
}

// GetPending returns the deployment currently marked pending, if any,
// read fresh from its per-ID record.
func (s *MetadataStore) GetPending() (Record, bool, error) {
	var id string
	txnErr := s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get([]byte(pendingKey))
		if getErr != nil {
			return getErr
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if errors.Is(txnErr, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if txnErr != nil {
		return Record{}, false, fmt.Errorf("activator: read pending deployment marker: %w", txnErr)
	}
	return s.Get(id)
}

// ClearPending removes the pending marker once a kernel-update deployment
// has fully resolved (bootstrap succeeded, or its rollback was completed).
// The per-ID record itself is left in place for audit/history.
func (s *MetadataStore) ClearPending() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(pendingKey))
	})
	if err != nil {
		return fmt.Errorf("activator: clear pending deployment marker: %w", err)
	}
	return nil
}

// advanceCursor persists tasks[0:cursor] as already applied for
// deploymentID, so RunBootstrap can resume at the right index after a
// crash instead of re-reading the bootstrap list from the start.
func (s *MetadataStore) advanceCursor(deploymentID string, cursor int) error {
	r, ok, err := s.Get(deploymentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("activator: no metadata record for deployment %s", deploymentID)
	}
	r.Cursor = cursor
	return s.Put(r)
}

// Close releases the underlying badger database.
func (s *MetadataStore) Close() error {
	return s.db.Close()
}
