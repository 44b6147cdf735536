// Package mediaid encodes and decodes the opaque media item identifier.
//
// An id is the library id and the library-relative path joined with "|",
// a character not permitted inside path segments. Decode splits on the
// first separator, so relative paths may themselves contain "|"-free
// segments of any shape.
package mediaid
