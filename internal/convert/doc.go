// Package convert wraps the cwebp and avifenc command-line encoders behind
// the converter contract the batch processor consumes.
//
// Each conversion is synchronous: the encoder writes to a staging temp file
// which is renamed next to the source on success. Failures are tagged with
// the batch error markers so the retry policy can tell a missing binary
// (permanent) from a failed encode (transient).
package convert
