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


package logsift

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/logsift/classify"
	"github.com/poiesic/logsift/classify/openai"
	"github.com/poiesic/logsift/ingestion"
	"github.com/poiesic/logsift/storage"
	"github.com/poiesic/logsift/storage/badger"
)

// Service owns a result store, a classifier and the ingestion engine that
// feeds classified lines into the store.
type Service struct {
	backend    *badger.Backend
	results    storage.ResultRepository
	classifier classify.Classifier
	engine     *ingestion.Engine
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	classifierConfig *classify.Config
	classifier       classify.Classifier
	engineOpts       []ingestion.Option
	logger           *slog.Logger
}

// WithClassifierConfig configures the OpenAI-compatible classifier.
func WithClassifierConfig(config *classify.Config) Option {
	return func(o *serviceOptions) {
		o.classifierConfig = config
	}
}

// WithClassifier uses classifier instead of building one from configuration.
func WithClassifier(classifier classify.Classifier) Option {
	return func(o *serviceOptions) {
		o.classifier = classifier
	}
}

// WithEngineOptions passes options through to the ingestion engine.
func WithEngineOptions(opts ...ingestion.Option) Option {
	return func(o *serviceOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// WithLogger sets the logger shared by the service and its engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// Open opens the result store at filePath and builds the engine on top of it.
// An empty filePath keeps results in memory.
func Open(filePath string, opts ...Option) (*Service, error) {
	options := &serviceOptions{
		classifierConfig: classify.DefaultConfig(),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, filePath == "")
	if err != nil {
		return nil, err
	}

	results, err := badger.NewResultRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	classifier := options.classifier
	if classifier == nil {
		classifier, err = openai.NewClassifier(options.classifierConfig)
		if err != nil {
			results.Close()
			backend.Close()
			return nil, err
		}
	}

	engineOpts := append([]ingestion.Option{
		ingestion.WithLogger(options.logger),
		ingestion.WithResultSink(results),
	}, options.engineOpts...)
	engine, err := ingestion.NewEngine(classifier, engineOpts...)
	if err != nil {
		results.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:    backend,
		results:    results,
		classifier: classifier,
		engine:     engine,
		logger:     options.logger,
	}, nil
}

// Start starts the engine's background loops.
func (s *Service) Start(ctx context.Context) error {
	return s.engine.Start(ctx)
}

// Close shuts the engine down within ctx, then closes the store.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	if err := s.engine.Shutdown(ctx); err != nil {
		s.logger.Error("error shutting down engine", "err", err)
		errs = append(errs, err)
	}
	if err := s.results.Close(); err != nil {
		s.logger.Error("error closing result repository", "err", err)
		errs = append(errs, err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) Engine() *ingestion.Engine {
	return s.engine
}

func (s *Service) Results() storage.ResultRepository {
	return s.results
}
