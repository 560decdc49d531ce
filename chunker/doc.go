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


// Package chunker splits free text into bounded, context-preserving passages.
//
// Two operations share one boundary model (paragraph > line > sentence >
// clause): Chunk produces token-budgeted passages with configurable overlap
// for embedding, and SplitBoundaries produces byte-targeted segments for the
// recursive splitter. Neither ever cuts inside a word, and neither truncates:
// an indivisible unit larger than the budget is emitted whole.
package chunker
