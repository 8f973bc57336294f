// Copyright 2026 EDW Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package llm defines the language-model boundary used for SQL generation.
package llm

import "context"

// Provider turns a prompt into generated text. The pipeline treats the
// output as untrusted; cleanup happens downstream.
type Provider interface {
	// Name returns the provider identifier (e.g. "anthropic").
	Name() string

	// Model returns the model identifier in use.
	Model() string

	// Complete sends one prompt and returns the model's text response.
	// The call blocks on network latency; callers needing bounded latency
	// impose a deadline via ctx.
	Complete(ctx context.Context, prompt string) (string, error)
}
