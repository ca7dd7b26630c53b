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


// Package panelmeta joins panel codes appearing in search results against
// the panel metadata collection.
//
// The stored panel code attribute is a string in some records and an
// integer in others, so Lookup tries an ordered list of typed strategies
// before giving up. Lookup never surfaces an error: a miss produces an
// empty metadata record and the owning chunk still renders.
package panelmeta
