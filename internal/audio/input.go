package audio

import "encoding/base64"

// Input is a single audio payload handed to a session: either raw PCM
// bytes or base64-encoded PCM text. Callers pick the variant once at the
// boundary instead of the session guessing at the payload shape.
type Input struct {
	raw      []byte
	b64      string
	isBase64 bool
}

// RawBytes wraps an already-binary PCM buffer.
func RawBytes(pcm []byte) Input {
	return Input{raw: pcm}
}

// Base64Text wraps base64-encoded PCM text.
func Base64Text(s string) Input {
	return Input{b64: s, isBase64: true}
}

// PCM resolves the input to raw bytes. Empty input resolves to nil;
// malformed base64 returns the decode error.
func (in Input) PCM() ([]byte, error) {
	if !in.isBase64 {
		return in.raw, nil
	}
	if in.b64 == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(in.b64)
}
