// Package mpath encodes tree positions as materialized paths: fixed-width
// base-N segments concatenated from the root down to a node. Lexicographic
// order of paths equals pre-order traversal of the tree.
package mpath

import "errors"

// Encoding errors
var (
	// ErrPathOverflow indicates that a segment or a whole path no longer fits
	// its fixed width. It is never recoverable for the insertion that hit it.
	ErrPathOverflow = errors.New("path overflow")

	// ErrInvalidSymbol indicates a path segment containing a symbol outside
	// the codec alphabet. It means the stored data is corrupt.
	ErrInvalidSymbol = errors.New("symbol outside path alphabet")

	// ErrNegativeStep indicates an attempt to encode a negative integer.
	ErrNegativeStep = errors.New("negative step")
)

// Shape errors
var (
	// ErrMalformedPath indicates a path whose length is not a whole number of
	// segments, or that is too short for the requested depth.
	ErrMalformedPath = errors.New("malformed path")

	// ErrInvalidCodec indicates a codec configuration that cannot produce
	// order-preserving paths.
	ErrInvalidCodec = errors.New("invalid path codec")
)
