package mpath

import (
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultAlphabet is digits followed by uppercase letters, in ASCII order.
	DefaultAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// DefaultStepLen is the number of symbols per segment.
	DefaultStepLen = 4
	// DefaultMaxLength is the width of the path column.
	DefaultMaxLength = 255
)

// Codec converts sibling positions to fixed-width path segments and back.
type Codec struct {
	Alphabet  string
	StepLen   int
	MaxLength int
}

// DefaultCodec returns the 36-symbol, 4-wide codec over a 255 byte column.
func DefaultCodec() *Codec {
	return &Codec{
		Alphabet:  DefaultAlphabet,
		StepLen:   DefaultStepLen,
		MaxLength: DefaultMaxLength,
	}
}

// NewCodec builds a codec and validates it.
func NewCodec(alphabet string, stepLen, maxLength int) (*Codec, error) {
	c := &Codec{Alphabet: alphabet, StepLen: stepLen, MaxLength: maxLength}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the codec produces paths whose byte order matches
// numeric order. Symbols are printable ASCII so one symbol is one byte and
// one SQLite character; prefix matches compare bytes, so mixed case is safe.
func (c *Codec) Validate() error {
	if len(c.Alphabet) < 2 {
		return fmt.Errorf("%w: alphabet needs at least 2 symbols, got %d", ErrInvalidCodec, len(c.Alphabet))
	}
	for i := 0; i < len(c.Alphabet); i++ {
		ch := c.Alphabet[i]
		if ch <= ' ' || ch > '~' {
			return fmt.Errorf("%w: alphabet symbol %q is not printable ASCII", ErrInvalidCodec, ch)
		}
		if i > 0 && c.Alphabet[i-1] >= ch {
			return fmt.Errorf("%w: alphabet must be strictly ascending (at %q)", ErrInvalidCodec, ch)
		}
	}
	if c.StepLen < 1 {
		return fmt.Errorf("%w: step length must be positive, got %d", ErrInvalidCodec, c.StepLen)
	}
	if c.MaxLength < c.StepLen {
		return fmt.Errorf("%w: max length %d is shorter than one segment (%d)", ErrInvalidCodec, c.MaxLength, c.StepLen)
	}
	return nil
}

func (c *Codec) base() int64 { return int64(len(c.Alphabet)) }

// MaxSiblings returns the largest step a single segment can hold.
func (c *Codec) MaxSiblings() int64 {
	base := c.base()
	n := int64(1)
	for i := 0; i < c.StepLen; i++ {
		if n > math.MaxInt64/base {
			return math.MaxInt64
		}
		n *= base
	}
	return n - 1
}

// MaxDepth returns the deepest level a path column can hold.
func (c *Codec) MaxDepth() int {
	return c.MaxLength / c.StepLen
}

// Encode converts n to its unpadded representation in the codec alphabet.
func (c *Codec) Encode(n int64) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeStep, n)
	}
	if n == 0 {
		return c.Alphabet[:1], nil
	}
	base := c.base()
	var buf [64]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = c.Alphabet[n%base]
		n /= base
	}
	return string(buf[i:]), nil
}

// Decode converts a string in the codec alphabet back to an integer.
func (c *Codec) Decode(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty segment", ErrInvalidSymbol)
	}
	base := c.base()
	var v int64
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(c.Alphabet, s[i])
		if d < 0 {
			return 0, fmt.Errorf("%w: %q at offset %d of %q", ErrInvalidSymbol, s[i], i, s)
		}
		if v > (math.MaxInt64-int64(d))/base {
			return 0, fmt.Errorf("%w: %q does not fit in 63 bits", ErrPathOverflow, s)
		}
		v = v*base + int64(d)
	}
	return v, nil
}

// Pad encodes n and left-pads it with the zero symbol to a full segment.
func (c *Codec) Pad(n int64) (string, error) {
	key, err := c.Encode(n)
	if err != nil {
		return "", err
	}
	if len(key) > c.StepLen {
		return "", fmt.Errorf("%w: step %d needs %d symbols, segment holds %d", ErrPathOverflow, n, len(key), c.StepLen)
	}
	return strings.Repeat(c.Alphabet[:1], c.StepLen-len(key)) + key, nil
}
