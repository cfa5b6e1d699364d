package audio

import (
	"encoding/binary"
	"math"
)

const (
	// SourceRate is the PCM sample rate produced by the capture side.
	SourceRate = 24000
	// TargetRate is the sample rate the transcription backend expects.
	TargetRate = 16000
)

// Resample converts 16-bit signed little-endian mono PCM at srcRate into
// float32 mono samples at dstRate using linear interpolation. Samples are
// normalized to [-1.0, 1.0]. The output holds floor(n * dstRate / srcRate)
// samples for n input samples; a trailing odd byte is ignored.
func Resample(pcm []byte, srcRate, dstRate int) []float32 {
	n := len(pcm) / 2
	if n == 0 || srcRate <= 0 || dstRate <= 0 {
		return nil
	}

	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}

	ratio := float64(dstRate) / float64(srcRate)
	out := make([]float32, n*dstRate/srcRate)
	for i := range out {
		srcIdx := float64(i) / ratio
		idx0 := int(srcIdx)
		idx1 := idx0 + 1
		if idx1 > n-1 {
			idx1 = n - 1
		}
		frac := srcIdx - float64(idx0)

		s0 := float64(samples[idx0]) / 32768.0
		s1 := float64(samples[idx1]) / 32768.0
		out[i] = float32(s0 + (s1-s0)*frac)
	}
	return out
}

// Float32Bytes encodes samples as little-endian 32-bit floats, the binary
// frame format the backend consumes.
func Float32Bytes(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}
