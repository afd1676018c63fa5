package jnisys

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// EncodeModified encodes s in modified UTF-8: NUL is written as the two-byte
// sequence C0 80 and characters outside the Basic Multilingual Plane as a
// surrogate pair of three-byte sequences. The result never contains a zero
// byte. Invalid UTF-8 in s is encoded as U+FFFD.
func EncodeModified(s string) []byte {
	out := make([]byte, 0, len(s)+len(s)/8)
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x10000:
			out = utf8.AppendRune(out, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			out = appendSurrogate(out, hi)
			out = appendSurrogate(out, lo)
		}
	}
	return out
}

// appendSurrogate writes one UTF-16 surrogate as a three-byte sequence,
// which utf8.AppendRune refuses to do.
func appendSurrogate(b []byte, r rune) []byte {
	return append(b,
		0xE0|byte(r>>12),
		0x80|byte(r>>6)&0x3F,
		0x80|byte(r)&0x3F,
	)
}

// DecodeModified decodes modified UTF-8. Plain UTF-8 without NUL or
// supplementary characters is valid modified UTF-8 and decodes unchanged;
// unpaired surrogates decode to U+FFFD.
func DecodeModified(b []byte) (string, error) {
	if isPlain(b) {
		return string(b), nil
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			if c == 0 {
				return "", fmt.Errorf("modified utf-8: zero byte at %d", i)
			}
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("modified utf-8: truncated sequence at %d", i)
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("modified utf-8: truncated sequence at %d", i)
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("modified utf-8: invalid byte %#x at %d", c, i)
		}
	}
	return string(utf16.Decode(units)), nil
}

// isPlain reports whether b is valid UTF-8 in which modified and standard
// encoding agree.
func isPlain(b []byte) bool {
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c == 0 || c == 0xC0 || c == 0xED || c >= 0xF0 {
			return false
		}
	}
	return utf8.Valid(b)
}
