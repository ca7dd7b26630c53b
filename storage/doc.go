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


// Package storage defines the retrieval and persistence contracts for the
// transcript chunk corpus and the panel metadata collection.
//
// The primary surface is ChunkStore, a hybrid (vector + lexical) query over
// transcript chunks. PanelStore is the secondary collection joined against
// retrieval results by panel code; its dual-typed fetch methods exist because
// the stored code attribute is a string in some records and an integer in
// others.
package storage
