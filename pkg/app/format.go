package app

import "unicode/utf8"

const hexDigits = "0123456789ABCDEF"

// FormatHex renders p as uppercase two-digit hex bytes separated by spaces.
func FormatHex(p []byte) string {
	return string(appendHex(nil, p))
}

func appendHex(dst, p []byte) []byte {
	for i, b := range p {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return dst
}

// appendStamp writes the "[stamp] " display and log prefix.
func appendStamp(dst []byte, stamp string) []byte {
	dst = append(dst, '[')
	dst = append(dst, stamp...)
	return append(dst, ']', ' ')
}

// textDecoder turns a stream of reads into displayable UTF-8. A multi-byte
// sequence split across reads is carried over instead of being replaced;
// genuinely invalid bytes become U+FFFD.
type textDecoder struct {
	carry []byte
}

func (d *textDecoder) appendText(dst, p []byte) []byte {
	if len(d.carry) > 0 {
		p = append(d.carry, p...)
		d.carry = nil
	}

	if cut := incompleteTail(p); cut > 0 {
		d.carry = append([]byte(nil), p[len(p)-cut:]...)
		p = p[:len(p)-cut]
	}

	return appendLossy(dst, p)
}

// flush replaces a carried partial sequence with U+FFFD per byte.
func (d *textDecoder) flush(dst []byte) []byte {
	if len(d.carry) == 0 {
		return dst
	}
	dst = appendLossy(dst, d.carry)
	d.carry = nil
	return dst
}

// incompleteTail returns the length of a truncated but so far valid UTF-8
// sequence at the end of p.
func incompleteTail(p []byte) int {
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax+1; i-- {
		if !utf8.RuneStart(p[i]) {
			continue
		}
		if utf8.FullRune(p[i:]) {
			return 0
		}
		return len(p) - i
	}
	return 0
}

func appendLossy(dst, p []byte) []byte {
	if utf8.Valid(p) {
		return append(dst, p...)
	}
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		if r == utf8.RuneError && size == 1 {
			dst = utf8.AppendRune(dst, utf8.RuneError)
		} else {
			dst = append(dst, p[:size]...)
		}
		p = p[size:]
	}
	return dst
}
