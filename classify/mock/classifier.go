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


package mock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/logsift/classify"
)

// MockClassifier is a test double for classify.Classifier.
// It allows custom behavior injection via function fields.
type MockClassifier struct {
	// ClassifyFunc is called by Classify if set.
	// If nil, a result is derived from the text itself.
	ClassifyFunc func(ctx context.Context, text string) (*classify.Result, error)

	callCount atomic.Int64

	mu   sync.Mutex
	seen []string
}

// NewMockClassifier creates a mock classifier with default behavior.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// Classify records the text and returns ClassifyFunc's result or a default one.
// Default behavior: tags are the lowercased level word (ERROR, WARN, ...) if
// the line starts with one, otherwise "unknown".
func (m *MockClassifier) Classify(ctx context.Context, text string) (*classify.Result, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.seen = append(m.seen, text)
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, text)
	}

	cleaned := strings.TrimSpace(text)
	tag := "unknown"
	if fields := strings.Fields(cleaned); len(fields) > 0 {
		switch level := strings.ToLower(strings.Trim(fields[0], "[]:")); level {
		case "debug", "info", "warn", "warning", "error", "fatal", "panic":
			tag = level
		}
	}
	return &classify.Result{
		CleanedText: cleaned,
		Summary:     "mock summary: " + cleaned,
		Tags:        []string{tag},
		Metadata:    map[string]string{"classifier": "mock"},
	}, nil
}

// CallCount returns the number of times Classify was called.
func (m *MockClassifier) CallCount() int {
	return int(m.callCount.Load())
}

// Seen returns every text passed to Classify, in call order.
func (m *MockClassifier) Seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

// Reset clears the call history and custom functions.
func (m *MockClassifier) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.seen = nil
	m.mu.Unlock()
	m.ClassifyFunc = nil
}
