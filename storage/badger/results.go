// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/logsift/core"
	"github.com/poiesic/logsift/storage"
)

// ResultRepository implements storage.ResultRepository for BadgerDB.
type ResultRepository struct {
	backend *Backend
}

var _ storage.ResultRepository = (*ResultRepository)(nil)

// NewResultRepository creates a repository on top of an open backend.
func NewResultRepository(backend *Backend) (storage.ResultRepository, error) {
	return newResultRepository(backend)
}

func newResultRepository(backend *Backend) (*ResultRepository, error) {
	if backend == nil {
		return nil, errors.New("badger backend required")
	}
	return &ResultRepository{backend: backend}, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *ResultRepository) Close() error {
	return nil
}

// AddResults stores results, replacing any result with the same ID.
func (r *ResultRepository) AddResults(ctx context.Context, results ...*core.UnitResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, result := range results {
			key := makeResultKey(result.Id)

			old, err := r.readResult(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				if err := r.deleteIndices(tx, old); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalUnitResult(result)); err != nil {
				return err
			}
			if err := r.writeIndices(tx, result); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetResult retrieves a single result by ID.
func (r *ResultRepository) GetResult(ctx context.Context, id core.ID) (*core.UnitResult, error) {
	var result *core.UnitResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readResult(tx, makeResultKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

// GetResultsByJob returns the results of a job ordered by line index.
func (r *ResultRepository) GetResultsByJob(ctx context.Context, jobID string) ([]*core.UnitResult, error) {
	if jobID == "" {
		return nil, storage.ErrInvalidQuery
	}
	var results []*core.UnitResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = r.resolveIndex(tx, makePartialResultJobKey(jobID))
		return err
	}, false)
	return results, err
}

// GetResultsByTag returns every result carrying tag, ordered by job and line index.
func (r *ResultRepository) GetResultsByTag(ctx context.Context, tag string) ([]*core.UnitResult, error) {
	if tag == "" {
		return nil, storage.ErrInvalidQuery
	}
	var results []*core.UnitResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = r.resolveIndex(tx, makePartialResultTagKey(tag))
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.UnitResult) int {
		return cmp.Or(cmp.Compare(a.JobID, b.JobID), cmp.Compare(a.Index, b.Index))
	})
	return results, nil
}

// DeleteResultsByJob removes all results of a job and their indices.
func (r *ResultRepository) DeleteResultsByJob(ctx context.Context, jobID string) (int, error) {
	if jobID == "" {
		return 0, storage.ErrInvalidQuery
	}
	deleted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		results, err := r.resolveIndex(tx, makePartialResultJobKey(jobID))
		if err != nil {
			return err
		}
		for _, result := range results {
			if err := r.deleteIndices(tx, result); err != nil {
				return err
			}
			if err := tx.Delete(makeResultKey(result.Id)); err != nil {
				return err
			}
		}
		deleted = len(results)
		return tx.Commit()
	}, true)
	return deleted, err
}

// resolveIndex loads the results referenced by every index key under prefix,
// in key order. Dangling index entries are skipped.
func (r *ResultRepository) resolveIndex(tx *badger.Txn, prefix []byte) ([]*core.UnitResult, error) {
	var ids []core.ID
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
		if err != nil {
			iter.Close()
			return nil, err
		}
	}
	iter.Close()

	results := make([]*core.UnitResult, 0, len(ids))
	for _, id := range ids {
		result, err := r.readResult(tx, makeResultKey(id))
		if err != nil {
			return nil, err
		}
		if result == nil {
			r.backend.logger.Warn("dangling result index entry", "id", id)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// readResult returns nil, nil when the key does not exist.
func (r *ResultRepository) readResult(tx *badger.Txn, key []byte) (*core.UnitResult, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var result *core.UnitResult
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		result, unmarshalErr = storage.UnmarshalUnitResult(val)
		return unmarshalErr
	})
	return result, err
}

func (r *ResultRepository) writeIndices(tx *badger.Txn, result *core.UnitResult) error {
	id := storage.MarshalID(result.Id)
	if err := tx.Set(makeResultJobKey(result.JobID, result.Index, result.Id), id); err != nil {
		return err
	}
	for _, tag := range result.Tags {
		if err := tx.Set(makeResultTagKey(tag, result.Id), id); err != nil {
			return err
		}
	}
	return nil
}

func (r *ResultRepository) deleteIndices(tx *badger.Txn, result *core.UnitResult) error {
	if err := tx.Delete(makeResultJobKey(result.JobID, result.Index, result.Id)); err != nil {
		return err
	}
	for _, tag := range result.Tags {
		if err := tx.Delete(makeResultTagKey(tag, result.Id)); err != nil {
			return err
		}
	}
	return nil
}
