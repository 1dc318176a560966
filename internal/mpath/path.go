package mpath

import (
	"fmt"
	"strings"
)

// BuildPath returns the path of the node at depth whose position among its
// siblings is step. Only the first depth-1 segments of parent are used, so
// parent may be any path at or below the intended parent; it is empty for
// roots. The result is exactly depth*StepLen long.
func (c *Codec) BuildPath(parent string, depth int, step int64) (string, error) {
	if depth < 1 {
		return "", fmt.Errorf("%w: depth %d", ErrMalformedPath, depth)
	}
	keep := (depth - 1) * c.StepLen
	if len(parent) < keep {
		return "", fmt.Errorf("%w: parent %q too short for depth %d", ErrMalformedPath, parent, depth)
	}
	seg, err := c.Pad(step)
	if err != nil {
		return "", err
	}
	path := parent[:keep] + seg
	if len(path) > c.MaxLength {
		return "", fmt.Errorf("%w: path of depth %d is %d long, column holds %d", ErrPathOverflow, depth, len(path), c.MaxLength)
	}
	return path, nil
}

// Increment returns the path of the next sibling of path.
func (c *Codec) Increment(path string) (string, error) {
	step, err := c.Step(path)
	if err != nil {
		return "", err
	}
	return c.BuildPath(path, c.Depth(path), step+1)
}

// Depth returns the number of segments in path.
func (c *Codec) Depth(path string) int {
	return len(path) / c.StepLen
}

// Step returns the decoded last segment of path.
func (c *Codec) Step(path string) (int64, error) {
	if err := c.checkShape(path); err != nil {
		return 0, err
	}
	return c.Decode(path[len(path)-c.StepLen:])
}

// ParentPath returns path with its last segment removed; roots yield "".
func (c *Codec) ParentPath(path string) string {
	if len(path) <= c.StepLen {
		return ""
	}
	return path[:len(path)-c.StepLen]
}

// AncestorPaths lists the paths of every ancestor of path, root first.
func (c *Codec) AncestorPaths(path string) []string {
	depth := c.Depth(path)
	if depth <= 1 {
		return nil
	}
	out := make([]string, 0, depth-1)
	for d := 1; d < depth; d++ {
		out = append(out, path[:d*c.StepLen])
	}
	return out
}

// Segments splits path into its fixed-width segments.
func (c *Codec) Segments(path string) []string {
	out := make([]string, 0, c.Depth(path))
	for i := 0; i+c.StepLen <= len(path); i += c.StepLen {
		out = append(out, path[i:i+c.StepLen])
	}
	return out
}

// IsDescendant reports whether path lies strictly below ancestor.
func IsDescendant(path, ancestor string) bool {
	return len(path) > len(ancestor) && strings.HasPrefix(path, ancestor)
}

// ValidatePath checks shape, width and alphabet of a stored path.
func (c *Codec) ValidatePath(path string) error {
	if err := c.checkShape(path); err != nil {
		return err
	}
	if len(path) > c.MaxLength {
		return fmt.Errorf("%w: %q is %d long, column holds %d", ErrPathOverflow, path, len(path), c.MaxLength)
	}
	for i := 0; i < len(path); i++ {
		if strings.IndexByte(c.Alphabet, path[i]) < 0 {
			return fmt.Errorf("%w: %q at offset %d of %q", ErrInvalidSymbol, path[i], i, path)
		}
	}
	return nil
}

func (c *Codec) checkShape(path string) error {
	if path == "" || len(path)%c.StepLen != 0 {
		return fmt.Errorf("%w: %q is not a whole number of %d-symbol segments", ErrMalformedPath, path, c.StepLen)
	}
	return nil
}
