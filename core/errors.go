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

// Failure kinds. Only ErrConnection on the primary retrieval step aborts a
// whole request; every other condition degrades into a flag on the affected
// unit of output.
var (
	// ErrConnection indicates the chunk store or embedding service was
	// unreachable. Fatal to the request.
	ErrConnection = errors.New("connection failure")

	// ErrTimeout indicates an outbound call exceeded its deadline.
	// Reported as a distinct kind so callers can tell a slow backend from
	// a dead one.
	ErrTimeout = errors.New("operation timed out")
)

// Request validation errors
var (
	// ErrEmptyQuestion indicates the request question is empty.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrAlphaOutOfRange indicates the hybrid weighting is outside [0,1].
	ErrAlphaOutOfRange = errors.New("alpha must be between 0 and 1")

	// ErrTopKOutOfRange indicates TopK is not in 1..30.
	ErrTopKOutOfRange = errors.New("top_k must be between 1 and 30")

	// ErrEmptyChunkText indicates a chunk has no text content.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")
)
