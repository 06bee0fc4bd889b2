// Package landmark matches images and video frames against a reference
// index of known landmarks.
//
// The index is a flat cosine-mode vector store (vecgo) over reference
// embeddings, built offline from a JSONL manifest and loaded read-only
// at startup. Embedding itself is delegated to an external service
// behind the Embedder interface; frame extraction from video is
// delegated to ffmpeg behind the FrameSampler interface, so the match
// logic stays testable without either binary.
package landmark
