// Package embeddings turns text into vectors for resources and queries.
//
// Three providers are available: TEI (a text-embeddings-inference server
// reached over HTTP), FastEmbed (local ONNX models, cgo builds only) and a
// deterministic feature-hashing embedder that needs no model at all. The
// hash provider is what tests and offline tooling use.
package embeddings
