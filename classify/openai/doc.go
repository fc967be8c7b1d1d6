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


// Package openai provides a classify.Classifier backed by OpenAI-compatible
// chat APIs.
//
// The classifier uses the langchaingo library, so it works against OpenAI
// itself as well as Ollama, LocalAI or vLLM.
//
// # Usage
//
//	cfg := classify.NewConfig(
//	    classify.WithHost("http://localhost:11434"), // /v1 added automatically
//	    classify.WithModel("qwen2.5:3b"),
//	)
//
//	c, err := openai.NewClassifier(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.Classify(ctx, "ERROR dial tcp 10.0.0.4:5432: connection refused")
package openai
