// Package library resolves convertible images from the uploads directory.
//
// The Scanner implements the batch resolver contract: candidate listings with
// limit/offset, item-ID to path resolution, and the existing-output check
// used for skip logic. Item IDs are library-relative paths.
package library
