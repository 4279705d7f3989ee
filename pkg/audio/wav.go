package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrBadFormat is returned when a WAV file does not carry 16-bit PCM data or
// its header is malformed.
var ErrBadFormat = errors.New("audio: not a 16-bit PCM WAV")

// ErrConversionFailed is returned when a WAV could not be normalized to the
// canonical format, either in-process or via the external converter.
var ErrConversionFailed = errors.New("audio: format conversion failed")

// wavHeaderSize is the byte size of the canonical 44-byte RIFF/WAVE header
// written by WAVWriter.
const wavHeaderSize = 44

// WAVWriter appends raw PCM frames to a WAV file. The RIFF size fields are
// written as placeholders and patched on Close, so a writer must always be
// closed for the file to be playable.
//
// WAVWriter is not safe for concurrent use; the recording path feeds it from
// a single goroutine.
type WAVWriter struct {
	f          *os.File
	path       string
	sampleRate int
	channels   int
	written    int64
}

// NewWAVWriter creates path (truncating any existing file) and writes a
// 16-bit PCM WAV header for the given sample rate and channel count.
func NewWAVWriter(path string, sampleRate, channels int) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create %q: %w", path, err)
	}
	w := &WAVWriter{f: f, path: path, sampleRate: sampleRate, channels: channels}
	if err := w.writeHeader(0); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the file path this writer records to.
func (w *WAVWriter) Path() string { return w.path }

// WriteFrames appends raw 16-bit PCM bytes to the data chunk.
func (w *WAVWriter) WriteFrames(pcm []byte) error {
	if w.f == nil {
		return errors.New("audio: writer is closed")
	}
	n, err := w.f.Write(pcm)
	w.written += int64(n)
	if err != nil {
		return fmt.Errorf("audio: write %q: %w", w.path, err)
	}
	return nil
}

// Close patches the RIFF and data chunk sizes and closes the file. Close is
// safe to call more than once; subsequent calls return nil.
func (w *WAVWriter) Close() error {
	if w.f == nil {
		return nil
	}
	f := w.f
	w.f = nil
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalize %q: %w", w.path, err)
	}
	w.f = f
	err := w.writeHeader(uint32(w.written))
	w.f = nil
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *WAVWriter) writeHeader(dataLen uint32) error {
	byteRate := uint32(w.sampleRate * w.channels * BytesPerSample)
	blockAlign := uint16(w.channels * BytesPerSample)

	var hdr [wavHeaderSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataLen)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], 16) // bits per sample
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataLen)

	if _, err := w.f.Write(hdr[:]); err != nil {
		return fmt.Errorf("audio: write header %q: %w", w.path, err)
	}
	return nil
}

// WAVReader reads the PCM data chunk of a 16-bit PCM WAV file sequentially.
type WAVReader struct {
	f          *os.File
	path       string
	sampleRate int
	channels   int
	remaining  int64
}

// OpenWAV opens path and parses its RIFF header. Only uncompressed 16-bit
// PCM files are accepted; anything else returns [ErrBadFormat].
func OpenWAV(path string) (*WAVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	r := &WAVReader{f: f, path: path}
	if err := r.parseHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// SampleRate returns the sample rate declared in the header.
func (r *WAVReader) SampleRate() int { return r.sampleRate }

// Channels returns the channel count declared in the header.
func (r *WAVReader) Channels() int { return r.channels }

// IsCanonical reports whether the file already matches the media-path
// format (16 kHz, mono, 16-bit).
func (r *WAVReader) IsCanonical() bool {
	return r.sampleRate == SampleRate && r.channels == Channels
}

// Read fills p with the next PCM bytes from the data chunk. It returns
// io.EOF once the chunk is exhausted.
func (r *WAVReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.f.Read(p)
	r.remaining -= int64(n)
	if err == io.EOF && r.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// ReadAll reads the entire remaining data chunk.
func (r *WAVReader) ReadAll() ([]byte, error) {
	buf := make([]byte, r.remaining)
	if _, err := io.ReadFull(r.f, buf); err != nil {
		return nil, fmt.Errorf("audio: read %q: %w", r.path, err)
	}
	r.remaining = 0
	return buf, nil
}

// Close closes the underlying file.
func (r *WAVReader) Close() error { return r.f.Close() }

// parseHeader walks the RIFF chunk list until it finds "fmt " and "data".
// Chunk-walking (rather than assuming a fixed 44-byte layout) tolerates
// files with LIST/INFO chunks emitted by some synthesis tools.
func (r *WAVReader) parseHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(r.f, riff[:]); err != nil {
		return fmt.Errorf("audio: %q: %w", r.path, ErrBadFormat)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return fmt.Errorf("audio: %q: %w", r.path, ErrBadFormat)
	}

	haveFmt := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r.f, chunk[:]); err != nil {
			return fmt.Errorf("audio: %q: %w", r.path, ErrBadFormat)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r.f, body); err != nil {
				return fmt.Errorf("audio: %q: %w", r.path, ErrBadFormat)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			bits := binary.LittleEndian.Uint16(body[14:16])
			if format != 1 || bits != 16 {
				return fmt.Errorf("audio: %q: format=%d bits=%d: %w", r.path, format, bits, ErrBadFormat)
			}
			r.channels = int(binary.LittleEndian.Uint16(body[2:4]))
			r.sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return fmt.Errorf("audio: %q: data before fmt: %w", r.path, ErrBadFormat)
			}
			r.remaining = size
			return nil
		default:
			// Skip unknown chunks (LIST, fact, ...). Chunks are word-aligned.
			if size%2 == 1 {
				size++
			}
			if _, err := r.f.Seek(size, io.SeekCurrent); err != nil {
				return fmt.Errorf("audio: %q: %w", r.path, ErrBadFormat)
			}
		}
	}
}

// WriteWAV writes pcm as a complete 16-bit PCM WAV file at path.
func WriteWAV(path string, pcm []byte, sampleRate, channels int) error {
	w, err := NewWAVWriter(path, sampleRate, channels)
	if err != nil {
		return err
	}
	if err := w.WriteFrames(pcm); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ffmpegBinary is the external converter invoked for files that cannot be
// normalized in-process. Overridable in tests.
var ffmpegBinary = "ffmpeg"

// EnsureCanonicalWAV returns a path to a 16 kHz mono 16-bit PCM WAV with the
// same content as path, converting if needed.
//
// The fast path (already canonical) returns path unchanged. 16-bit PCM files
// with the wrong rate or channel count are converted in-process via
// [StereoToMono] and [ResampleMono16]. Anything else is handed to ffmpeg.
// All conversion failures wrap [ErrConversionFailed].
func EnsureCanonicalWAV(path string) (string, error) {
	r, err := OpenWAV(path)
	if err == nil {
		defer r.Close()
		if r.IsCanonical() {
			return path, nil
		}
		return convertInProcess(r, path)
	}

	// Not parseable as 16-bit PCM: let ffmpeg deal with it.
	return convertWithFFmpeg(path)
}

func convertInProcess(r *WAVReader, path string) (string, error) {
	pcm, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	switch r.Channels() {
	case 1:
		// nothing to do
	case 2:
		pcm = StereoToMono(pcm)
	default:
		return convertWithFFmpeg(path)
	}
	pcm = ResampleMono16(pcm, r.SampleRate(), SampleRate)

	out := canonicalName(path)
	if err := WriteWAV(out, pcm, SampleRate, Channels); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	return out, nil
}

func convertWithFFmpeg(path string) (string, error) {
	if _, err := exec.LookPath(ffmpegBinary); err != nil {
		return "", fmt.Errorf("%w: %q is not 16k mono s16le and ffmpeg is not installed", ErrConversionFailed, path)
	}
	out := canonicalName(path)
	cmd := exec.Command(ffmpegBinary, "-y", "-hide_banner", "-loglevel", "error",
		"-i", path, "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", out)
	if b, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: ffmpeg: %v: %s", ErrConversionFailed, err, strings.TrimSpace(string(b)))
	}
	return out, nil
}

func canonicalName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_16k_mono.wav"
}
