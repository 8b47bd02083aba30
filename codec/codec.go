// Package codec provides pluggable value (de)serialization for the typed
// cache layer. The document store itself speaks JSON on disk; codecs matter
// when callers cache their own typed values next to the document.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
