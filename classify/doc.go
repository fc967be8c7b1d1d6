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


// Package classify defines the classification collaborator used by the
// ingestion engine.
//
// A Classifier turns one unit of raw log text into a cleaned form, a short
// human summary, a set of tags and free-form metadata. The engine treats it as
// an untrusted black box: a failure only affects the unit being classified.
//
// Implementations live in subpackages:
//   - classify/openai talks to any OpenAI-compatible chat API
//   - classify/mock is a function-field test double
package classify
