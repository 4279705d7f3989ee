package audio

import (
	"encoding/binary"
	"math"
)

// StereoToMono downmixes interleaved 16-bit stereo PCM to mono by averaging
// the two channels.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		m := (int32(l) + int32(r)) / 2
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(m)))
	}
	return out
}

// ResampleMono16 converts mono 16-bit PCM from srcRate to dstRate using
// linear interpolation. Good enough for speech; files that need better
// filtering go through the external converter instead.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	if srcSamples == 0 {
		return nil
	}
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)
	for i := 0; i < dstSamples; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		s0 := sampleAt(pcm, idx, srcSamples)
		s1 := sampleAt(pcm, idx+1, srcSamples)
		v := float64(s0)*(1-frac) + float64(s1)*frac
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

func sampleAt(pcm []byte, idx, n int) int16 {
	if idx >= n {
		idx = n - 1
	}
	return int16(binary.LittleEndian.Uint16(pcm[idx*2:]))
}

// PCMToFloat32 converts 16-bit PCM bytes to normalized float32 samples in
// [-1, 1], the input format speech models expect.
func PCMToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// RMS returns the root-mean-square amplitude of normalized samples, used for
// cheap silence detection.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
