package tree

import (
	"fmt"
	"strconv"

	"lukechampine.com/blake3"
)

// Fingerprint computes a BLAKE3 hash over every path and label of the
// snapshot in path order. Node IDs are left out, so two databases holding the
// same tree shape and labels share a fingerprint.
func Fingerprint(snap *Snapshot) string {
	hasher := blake3.New(32, nil)
	for _, n := range snap.Nodes {
		// Paths never hold a newline; labels may, so they are length-prefixed.
		hasher.Write([]byte(n.Path))
		hasher.Write([]byte("\n"))
		hasher.Write([]byte(strconv.Itoa(len(n.Label)) + ":"))
		hasher.Write([]byte(n.Label))
		hasher.Write([]byte("\n"))
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}
