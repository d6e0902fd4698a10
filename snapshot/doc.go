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

// Package snapshot bundles the artifacts of one index build into a single
// immutable value.
//
// A Snapshot holds the manifest, the metadata tables and the vector index of
// the same build. They are only meaningful together: chunk global ids
// address index rows and chunks reference recipe rows. Snapshots are
// validated on construction and never modified afterwards, so searches may
// share one without locking.
package snapshot
