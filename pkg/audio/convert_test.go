package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestStereoToMonoAverages(t *testing.T) {
	stereo := make([]byte, 8)
	binary.LittleEndian.PutUint16(stereo[0:], uint16(int16(100)))
	binary.LittleEndian.PutUint16(stereo[2:], uint16(int16(300)))
	neg := int16(-1000)
	binary.LittleEndian.PutUint16(stereo[4:], uint16(neg))
	binary.LittleEndian.PutUint16(stereo[6:], uint16(int16(1000)))

	mono := StereoToMono(stereo)
	if len(mono) != 4 {
		t.Fatalf("got %d bytes, want 4", len(mono))
	}
	if s := int16(binary.LittleEndian.Uint16(mono[0:])); s != 200 {
		t.Fatalf("sample 0 = %d, want 200", s)
	}
	if s := int16(binary.LittleEndian.Uint16(mono[2:])); s != 0 {
		t.Fatalf("sample 1 = %d, want 0", s)
	}
}

func TestResampleMono16Halves(t *testing.T) {
	src := make([]byte, 32000*2) // one second at 32 kHz
	out := ResampleMono16(src, 32000, 16000)
	if len(out) != 16000*2 {
		t.Fatalf("got %d bytes, want %d", len(out), 16000*2)
	}
}

func TestResampleMono16Identity(t *testing.T) {
	src := sinePCM(320)
	out := ResampleMono16(src, SampleRate, SampleRate)
	if &out[0] != &src[0] {
		t.Fatal("same-rate resample should return input unchanged")
	}
}

func TestPCMToFloat32Range(t *testing.T) {
	pcm := make([]byte, 6)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(int16(32767)))
	negMin := int16(-32768)
	binary.LittleEndian.PutUint16(pcm[4:], uint16(negMin))

	f := PCMToFloat32(pcm)
	if f[0] != 0 {
		t.Fatalf("f[0] = %v, want 0", f[0])
	}
	if math.Abs(float64(f[1])-1) > 0.001 {
		t.Fatalf("f[1] = %v, want ~1", f[1])
	}
	if f[2] != -1 {
		t.Fatalf("f[2] = %v, want -1", f[2])
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v", got)
	}
	got := RMS([]float32{0.5, -0.5, 0.5, -0.5})
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("RMS = %v, want 0.5", got)
	}
}

func TestFrameConstants(t *testing.T) {
	if FrameSamples != 320 || FrameBytes != 640 {
		t.Fatalf("frame geometry drifted: samples=%d bytes=%d", FrameSamples, FrameBytes)
	}
	if FrameDuration != 20*time.Millisecond {
		t.Fatalf("frame duration = %v", FrameDuration)
	}
}
