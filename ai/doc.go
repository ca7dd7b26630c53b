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


// Package ai defines the model-service contracts for the search pipeline:
// text embedding for the dense retrieval channel and cross-encoder pair
// scoring for second-stage reranking.
//
// Concrete clients live in the subpackages: openai for OpenAI-compatible
// embedding APIs, rerank for HTTP cross-encoder services, and mock for
// deterministic test doubles.
package ai
