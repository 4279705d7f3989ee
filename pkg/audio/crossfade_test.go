package audio

import (
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"
)

func constPCM(samples int, v int16) []byte {
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestCrossfadeSingleFileCopies(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "one.wav")
	out := filepath.Join(dir, "joined.wav")
	pcm := constPCM(FrameSamples*3, 1000)
	if err := WriteWAV(in, pcm, SampleRate, Channels); err != nil {
		t.Fatal(err)
	}

	if err := CrossfadeWAVFiles([]string{in}, out, DefaultCrossfade); err != nil {
		t.Fatalf("CrossfadeWAVFiles: %v", err)
	}
	r, err := OpenWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := r.ReadAll()
	if len(got) != len(pcm) {
		t.Fatalf("single input must not be shortened: got %d, want %d", len(got), len(pcm))
	}
}

func TestCrossfadeOverlapsBoundary(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	out := filepath.Join(dir, "ab.wav")

	fade := 40 * time.Millisecond
	fadeSamples := int(fade.Milliseconds()) * SampleRate / 1000
	aSamples, bSamples := SampleRate/2, SampleRate/2

	if err := WriteWAV(a, constPCM(aSamples, 10000), SampleRate, Channels); err != nil {
		t.Fatal(err)
	}
	if err := WriteWAV(b, constPCM(bSamples, -10000), SampleRate, Channels); err != nil {
		t.Fatal(err)
	}
	if err := CrossfadeWAVFiles([]string{a, b}, out, fade); err != nil {
		t.Fatalf("CrossfadeWAVFiles: %v", err)
	}

	r, err := OpenWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	pcm, _ := r.ReadAll()

	wantLen := (aSamples + bSamples - fadeSamples) * 2
	if len(pcm) != wantLen {
		t.Fatalf("joined length %d, want %d", len(pcm), wantLen)
	}

	// Midpoint of the fade window should sit near zero between the two levels.
	mid := (aSamples - fadeSamples + fadeSamples/2) * 2
	s := int16(binary.LittleEndian.Uint16(pcm[mid:]))
	if s < -2000 || s > 2000 {
		t.Fatalf("fade midpoint sample = %d, want near 0", s)
	}

	// Well before and after the seam the levels are untouched.
	if s := int16(binary.LittleEndian.Uint16(pcm[100:])); s != 10000 {
		t.Fatalf("pre-seam sample = %d, want 10000", s)
	}
	if s := int16(binary.LittleEndian.Uint16(pcm[len(pcm)-100:])); s != -10000 {
		t.Fatalf("post-seam sample = %d, want -10000", s)
	}
}

func TestCrossfadeShortClipsConcatenate(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	out := filepath.Join(dir, "ab.wav")

	// 10 ms clips, shorter than the fade window.
	if err := WriteWAV(a, constPCM(160, 5), SampleRate, Channels); err != nil {
		t.Fatal(err)
	}
	if err := WriteWAV(b, constPCM(160, 7), SampleRate, Channels); err != nil {
		t.Fatal(err)
	}
	if err := CrossfadeWAVFiles([]string{a, b}, out, DefaultCrossfade); err != nil {
		t.Fatal(err)
	}
	r, err := OpenWAV(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	pcm, _ := r.ReadAll()
	if len(pcm) != 320*2 {
		t.Fatalf("short clips should concatenate: got %d bytes", len(pcm))
	}
}
