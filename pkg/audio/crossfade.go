package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// DefaultCrossfade is the overlap applied when joining synthesized sentence
// clips. Long enough to hide the seam, short enough not to eat syllables.
const DefaultCrossfade = 40 * time.Millisecond

// CrossfadeWAVFiles joins the canonical-format WAV files at paths into a
// single WAV at out, overlapping each boundary with a linear crossfade of the
// given duration. A single input is copied without fading. All inputs must
// be 16 kHz mono 16-bit PCM; anything else returns [ErrBadFormat].
func CrossfadeWAVFiles(paths []string, out string, fade time.Duration) error {
	if len(paths) == 0 {
		return fmt.Errorf("audio: crossfade: no input files")
	}
	if fade <= 0 {
		fade = DefaultCrossfade
	}
	fadeSamples := int(fade.Milliseconds()) * SampleRate / 1000

	var joined []byte
	for i, p := range paths {
		r, err := OpenWAV(p)
		if err != nil {
			return err
		}
		if !r.IsCanonical() {
			r.Close()
			return fmt.Errorf("audio: crossfade %q: rate=%d ch=%d: %w", p, r.SampleRate(), r.Channels(), ErrBadFormat)
		}
		pcm, err := r.ReadAll()
		r.Close()
		if err != nil {
			return err
		}
		if i == 0 {
			joined = pcm
			continue
		}
		joined = crossfadePCM(joined, pcm, fadeSamples)
	}
	return WriteWAV(out, joined, SampleRate, Channels)
}

// crossfadePCM overlaps the tail of a with the head of b. When either clip
// is shorter than the fade window, the clips are concatenated as-is.
func crossfadePCM(a, b []byte, fadeSamples int) []byte {
	fadeBytes := fadeSamples * BytesPerSample
	if fadeBytes <= 0 || len(a) < fadeBytes || len(b) < fadeBytes {
		return append(a, b...)
	}

	out := make([]byte, 0, len(a)+len(b)-fadeBytes)
	out = append(out, a[:len(a)-fadeBytes]...)

	tail := a[len(a)-fadeBytes:]
	head := b[:fadeBytes]
	mixed := make([]byte, fadeBytes)
	for i := 0; i < fadeSamples; i++ {
		t := float64(i) / float64(fadeSamples)
		sa := int16(binary.LittleEndian.Uint16(tail[i*2:]))
		sb := int16(binary.LittleEndian.Uint16(head[i*2:]))
		v := float64(sa)*(1-t) + float64(sb)*t
		binary.LittleEndian.PutUint16(mixed[i*2:], uint16(int16(v)))
	}
	out = append(out, mixed...)
	out = append(out, b[fadeBytes:]...)
	return out
}
