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


package core

import (
	"fmt"
	"slices"
)

// ValidateSubmission validates the parameters of a regular (non-stream) job.
//
// Validation rules:
//   - Source must be valid and must not be SourceStream
//   - Priority must be valid
//   - Payload must have exactly one variant populated
func ValidateSubmission(source Source, priority Priority, payload Payload) error {
	if err := ValidateSource(source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if source == SourceStream {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, ErrStreamSource)
	}
	if err := ValidatePriority(priority); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if err := ValidatePayload(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	return nil
}

// ValidateStream validates the parameters of a stream job.
func ValidateStream(streamID string, priority Priority) error {
	if streamID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, ErrStreamIDRequired)
	}
	if err := ValidatePriority(priority); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	return nil
}

// ValidatePayload checks that exactly one payload variant is populated.
func ValidatePayload(payload Payload) error {
	switch payload.variants() {
	case 0:
		return ErrEmptyPayload
	case 1:
		return nil
	default:
		return ErrMultiplePayloads
	}
}

// ValidateSource validates that a Source has a known value.
func ValidateSource(source Source) error {
	if !slices.Contains(Sources, source) {
		return fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	return nil
}

// ValidatePriority validates that a Priority has a known value.
func ValidatePriority(priority Priority) error {
	if priority < PriorityCritical || priority > PriorityBatch {
		return fmt.Errorf("%w: value %d", ErrInvalidPriority, priority)
	}
	return nil
}
