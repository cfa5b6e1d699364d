package audio

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestInputRawBytes(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	got, err := RawBytes(pcm).PCM()
	if err != nil {
		t.Fatalf("PCM() error: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("got %v, want %v", got, pcm)
	}
}

func TestInputBase64(t *testing.T) {
	pcm := []byte{0x10, 0x20, 0x30}
	got, err := Base64Text(base64.StdEncoding.EncodeToString(pcm)).PCM()
	if err != nil {
		t.Fatalf("PCM() error: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("got %v, want %v", got, pcm)
	}
}

func TestInputMalformedBase64(t *testing.T) {
	if _, err := Base64Text("not!!valid@@base64").PCM(); err == nil {
		t.Error("expected decode error for malformed base64")
	}
}

func TestInputEmpty(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   Input
	}{
		{"nil raw", RawBytes(nil)},
		{"empty raw", RawBytes([]byte{})},
		{"empty base64", Base64Text("")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.in.PCM()
			if err != nil {
				t.Fatalf("PCM() error: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("got %d bytes, want 0", len(got))
			}
		})
	}
}
