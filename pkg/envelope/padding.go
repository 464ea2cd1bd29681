package envelope

// padBlockSize is the vendor's padding block. It is not the AES block size.
const padBlockSize = 32

// Pad appends n bytes of value n so the result is a multiple of 32 bytes.
// A full block of padding is added when the text is already aligned.
func Pad(text string) []byte {
	n := padBlockSize - len(text)%padBlockSize
	out := make([]byte, len(text)+n)
	copy(out, text)
	for i := len(text); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// Unpad strips padding added by Pad. Input that does not end in a valid
// padding run is returned unchanged, since counterparties sometimes strip
// it before sending.
func Unpad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	n := int(b[len(b)-1])
	if n < 1 || n > padBlockSize || n > len(b) {
		return b
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return b
		}
	}
	return b[:len(b)-n]
}
