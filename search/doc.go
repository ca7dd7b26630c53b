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


// Package search runs the retrieval pipeline over conference transcripts.
//
// The Searcher type implements a multi-stage algorithm that combines:
//   - Hybrid retrieval mixing vector and lexical relevance
//   - Optional cross-encoder reranking of an oversampled candidate pool
//   - A panel metadata join with a typed-fallback code lookup
//   - Audio reference resolution from transcript filenames
//
// Results are grouped by owning panel, groups ordered by each panel's best
// rank. Only a failure of the primary retrieval aborts a search; every
// enrichment stage degrades to a partial result with a warning.
package search
