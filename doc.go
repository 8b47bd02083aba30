// Package dotstore implements an embedded, file-backed key-value store: one
// JSON document on disk, addressed by dot-delimited paths, fronted by a
// pluggable byte cache to avoid repeated disk round-trips.
//
// Components:
//   - Store: the document store. Every operation runs a full
//     acquire -> read -> mutate -> persist -> release cycle.
//   - provider.Provider: byte cache for document snapshots. The built-in
//     size-bounded LRU (provider/lru) is the default; Ristretto, BigCache and
//     Redis adapters are available.
//   - codec.Codec[V] + typed.Cache[V]: typed read-through caching for callers
//     that keep derived values next to the document.
//
// Persistence is a whole-document rewrite through a temp file and an atomic
// rename, so readers never observe a half-written file. A sibling ".bak" copy
// (when enabled) is consulted if the primary ever fails to parse; an
// unrecoverable document degrades to an empty one rather than failing reads.
//
// Mutual exclusion across processes is advisory, through a ".lock" marker
// file. Within one Store instance, operations are serialized FIFO by a single
// worker goroutine, so two concurrent calls never interleave their
// read-modify-write cycles.
//
// Dot paths address object keys only: "a.b.c" never indexes arrays. Arrays
// are manipulated through the array helpers (Push, Pop, Unique, ...).
package dotstore
