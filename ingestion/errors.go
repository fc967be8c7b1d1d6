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


package ingestion

import "errors"

var (
	// ErrClassifierRequired is returned when an engine is created without a classifier.
	ErrClassifierRequired = errors.New("classifier required")

	// ErrEngineClosed is returned by operations on an engine that has been shut down.
	ErrEngineClosed = errors.New("engine closed")

	// ErrEngineStarted is returned when Start is called more than once.
	ErrEngineStarted = errors.New("engine already started")

	// ErrStreamExists is returned when a stream ID is opened twice.
	ErrStreamExists = errors.New("stream already open")

	// ErrStreamNotFound is returned for lines sent to an unknown stream.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInterrupted marks a job whose worker was stopped by shutdown.
	ErrInterrupted = errors.New("interrupted by shutdown")
)
