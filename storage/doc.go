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


// Package storage provides the storage abstraction layer for classified log units.
//
// The ingestion engine is memory-only; this package is where the outcome of
// each classified line can be kept once its job has been swept. Results are
// stored as core.UnitResult values and indexed by job and by tag.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the storage interfaces:
//
//	repo, err := badger.NewResultRepository(backend) // returns storage.ResultRepository
//
// Internal constructors may return concrete types.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/var/lib/logsift", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo, err := badger.NewResultRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	results, err := repo.GetResultsByTag(ctx, "timeout")
//
// Tests can use badger.NewMemoryResultRepository.
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use.
package storage
