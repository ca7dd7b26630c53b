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


package storage

import "errors"

var (
	// ErrNotFound indicates no record matched the lookup.
	ErrNotFound = errors.New("record not found")

	// ErrStoreClosed indicates an operation was attempted after Close.
	ErrStoreClosed = errors.New("store is closed")

	// ErrVectorCountMismatch indicates SaveChunks received a vector slice
	// whose length differs from the chunk slice.
	ErrVectorCountMismatch = errors.New("vector count does not match chunk count")
)
