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

import "errors"

// Submission errors. All of them are wrapped by ErrInvalidSubmission.
var (
	// ErrInvalidSubmission indicates a submission was rejected and no job was created.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrEmptyPayload indicates no payload variant was supplied.
	ErrEmptyPayload = errors.New("payload cannot be empty")

	// ErrMultiplePayloads indicates more than one payload variant was supplied.
	ErrMultiplePayloads = errors.New("payload must have exactly one variant")

	// ErrInvalidSource indicates an unknown Source value.
	ErrInvalidSource = errors.New("invalid source")

	// ErrInvalidPriority indicates an unknown Priority value.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrStreamIDRequired indicates a stream job was created without a stream ID.
	ErrStreamIDRequired = errors.New("stream id required")

	// ErrStreamSource indicates a stream job was submitted as a regular job.
	ErrStreamSource = errors.New("stream jobs must be opened as streams")
)

// Processing errors.
var (
	// ErrProcessing indicates the classifier failed on a single unit.
	ErrProcessing = errors.New("processing failed")

	// ErrIO indicates a payload file could not be opened or read.
	ErrIO = errors.New("io failure")

	// ErrDecode indicates the payload could not be decoded to text.
	ErrDecode = errors.New("payload is not valid UTF-8")

	// ErrJobNotFound indicates no job exists with the requested ID.
	ErrJobNotFound = errors.New("job not found")
)
