package msk

const asciiWidth = 7

// GroupASCII packs bits into 7-bit codes, most significant bit first, using
// every complete group. Codes outside the printable ranges 32–96 and 123–126
// are discarded.
func GroupASCII(bits []uint8) []byte {
	codes := make([]byte, 0, len(bits)/asciiWidth)
	for i := 0; i+asciiWidth <= len(bits); i += asciiWidth {
		var code byte
		for _, b := range bits[i : i+asciiWidth] {
			code = code<<1 | b&1
		}
		if printable(code) {
			codes = append(codes, code)
		}
	}
	return codes
}

func printable(code byte) bool {
	return (code >= 32 && code <= 96) || (code >= 123 && code <= 126)
}
