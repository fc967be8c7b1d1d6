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


package storage

import (
	"context"

	"github.com/poiesic/logsift/core"
)

// Repository is the base interface for all repositories.
type Repository interface {
	// Close releases resources held by the repository.
	// It does not close the underlying backend.
	Close() error
}

// ResultRepository stores the classification of individual log units.
type ResultRepository interface {
	Repository

	// AddResults stores results, replacing any result with the same ID.
	// Job and tag indices are kept in sync.
	AddResults(ctx context.Context, results ...*core.UnitResult) error

	// GetResult retrieves a single result by ID.
	// Returns ErrNotFound if the result doesn't exist.
	GetResult(ctx context.Context, id core.ID) (*core.UnitResult, error)

	// GetResultsByJob returns the results of a job ordered by line index.
	GetResultsByJob(ctx context.Context, jobID string) ([]*core.UnitResult, error)

	// GetResultsByTag returns every result carrying tag, ordered by job and line index.
	GetResultsByTag(ctx context.Context, tag string) ([]*core.UnitResult, error)

	// DeleteResultsByJob removes all results of a job and their indices.
	// It returns the number of results removed.
	DeleteResultsByJob(ctx context.Context, jobID string) (int, error)
}
