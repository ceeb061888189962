// Package signature locates fixed-length byte patterns with wildcard positions.
package signature

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// MaskExact marks a position that must match the pattern byte.
	MaskExact byte = 0xFF
	// MaskWildcard marks a position that matches any byte.
	MaskWildcard byte = 0x00
)

var (
	ErrNotFound         = errors.New("signature not found")
	ErrAmbiguous        = errors.New("signature matched more than once")
	ErrInvalidSignature = errors.New("invalid signature")
)

// AmbiguousError records the first two matching offsets of a signature that is
// required to be unique.
type AmbiguousError struct {
	First  int
	Second int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("signature collision at offsets 0x%X and 0x%X", e.First, e.Second)
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguous
}

// Signature is a byte pattern plus an equal-length mask. Mask bytes are
// MaskExact or MaskWildcard.
type Signature struct {
	Pattern []byte
	Mask    []byte
}

// New builds a signature from explicit pattern and mask slices.
func New(pattern, mask []byte) (Signature, error) {
	sig := Signature{
		Pattern: append([]byte(nil), pattern...),
		Mask:    append([]byte(nil), mask...),
	}
	if err := sig.Validate(); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

// FromMaskString builds a signature from a pattern and an "xx??x" style mask
// string where '?' marks a wildcard.
func FromMaskString(pattern []byte, mask string) (Signature, error) {
	if len(pattern) != len(mask) {
		return Signature{}, fmt.Errorf("%w: pattern length %d, mask length %d", ErrInvalidSignature, len(pattern), len(mask))
	}
	m := make([]byte, len(mask))
	for i := range mask {
		if mask[i] == '?' {
			m[i] = MaskWildcard
		} else {
			m[i] = MaskExact
		}
	}
	return New(pattern, m)
}

// Parse builds a signature from space or comma separated hex bytes, with "?"
// or "??" for wildcard positions, e.g. "89 87 ?? ?? ?? ?? 0F 29".
func Parse(s string) (Signature, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	pattern := make([]byte, 0, len(parts))
	mask := make([]byte, 0, len(parts))
	for _, part := range parts {
		if part == "?" || part == "??" {
			pattern = append(pattern, 0)
			mask = append(mask, MaskWildcard)
			continue
		}

		part = strings.TrimPrefix(strings.ToLower(part), "0x")
		if len(part) != 2 {
			return Signature{}, fmt.Errorf("%w: bad byte %q", ErrInvalidSignature, part)
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return Signature{}, fmt.Errorf("%w: bad byte %q", ErrInvalidSignature, part)
		}
		pattern = append(pattern, b[0])
		mask = append(mask, MaskExact)
	}

	return New(pattern, mask)
}

// MustParse is Parse for package-level constants.
func MustParse(s string) Signature {
	sig, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sig
}

// Validate checks that pattern and mask are non-empty and of equal length.
func (s Signature) Validate() error {
	if len(s.Pattern) == 0 {
		return fmt.Errorf("%w: empty pattern", ErrInvalidSignature)
	}
	if len(s.Pattern) != len(s.Mask) {
		return fmt.Errorf("%w: mask length (%d) doesn't match pattern length (%d)",
			ErrInvalidSignature, len(s.Mask), len(s.Pattern))
	}
	return nil
}

// Len returns the number of bytes the signature spans.
func (s Signature) Len() int {
	return len(s.Pattern)
}

// String renders the signature in the form accepted by Parse.
func (s Signature) String() string {
	var sb strings.Builder
	for i, b := range s.Pattern {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if i < len(s.Mask) && s.Mask[i] == MaskWildcard {
			sb.WriteString("??")
			continue
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// MatchAt reports whether the signature matches buf at offset.
func (s Signature) MatchAt(buf []byte, offset int) bool {
	if offset < 0 || offset+len(s.Pattern) > len(buf) {
		return false
	}
	for j := 0; j < len(s.Pattern); j++ {
		if s.Mask[j] == MaskWildcard {
			continue
		}
		if buf[offset+j] != s.Pattern[j] {
			return false
		}
	}
	return true
}
