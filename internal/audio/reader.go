// Package audio opens the capture streams the control loop reads from: ALSA
// devices, or audio files replayed as if they were live input.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/linuxmatters/avc/internal/peak"
	"github.com/mewkiz/flac"
)

var (
	// ErrNotRecoverable is returned by Reader.Recover; a replayed file that
	// fails to read, or runs out, stays that way.
	ErrNotRecoverable = errors.New("file stream cannot recover")
	ErrNotWAV         = errors.New("not a PCM WAV file")
	ErrNotAIFF        = errors.New("not an AIFF file")
	ErrUnknownKind    = errors.New("unknown audio file kind")
)

// Kind selects the decoder for a replayed file.
type Kind string

const (
	KindWAV  Kind = "wav"
	KindMP3  Kind = "mp3"
	KindOgg  Kind = "ogg"
	KindFLAC Kind = "flac"
	KindAIFF Kind = "aiff"
)

// Metadata contains audio file metadata
type Metadata struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	BitDepth   int
	Codec      Kind
}

// sampleDecoder yields interleaved 16-bit samples in the file's own channel
// layout and returns io.EOF once exhausted.
type sampleDecoder interface {
	ReadSamples(dst []int16) (int, error)
}

// Reader replays an audio file as interleaved S16_LE stereo blocks. Mono
// files are duplicated to both channels and wider files keep their first two.
type Reader struct {
	path    string
	file    *os.File
	dec     sampleDecoder
	meta    Metadata
	samples []int16
}

// OpenAudioFile opens an audio file for reading
func OpenAudioFile(kind Kind, path string) (*Reader, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}

	var dec sampleDecoder
	var meta Metadata
	switch kind {
	case KindWAV:
		dec, meta, err = newWAVDecoder(f)
	case KindMP3:
		dec, meta, err = newMP3Decoder(f)
	case KindOgg:
		dec, meta, err = newOggDecoder(f)
	case KindFLAC:
		dec, meta, err = newFLACDecoder(f)
	case KindAIFF:
		dec, meta, err = newAIFFDecoder(f)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if meta.Channels < 1 {
		f.Close()
		return nil, nil, fmt.Errorf("no audio channels in file: %s", path)
	}
	meta.Codec = kind

	r := &Reader{
		path: path,
		file: f,
		dec:  dec,
		meta: meta,
	}
	return r, &r.meta, nil
}

// Metadata returns the file's native encoding.
func (r *Reader) Metadata() Metadata {
	return r.meta
}

// Rate returns the file's sample rate; blocks are never resampled.
func (r *Reader) Rate() uint {
	return uint(r.meta.SampleRate)
}

// Read fills block with the next frames of the file. A short final block is
// padded with silence; the read after it returns io.EOF.
func (r *Reader) Read(block []byte) error {
	frameBytes := peak.Channels * 2
	frames := len(block) / frameBytes
	ch := r.meta.Channels

	need := frames * ch
	if cap(r.samples) < need {
		r.samples = make([]int16, need)
	}
	buf := r.samples[:need]

	got := 0
	for got < need {
		n, err := r.dec.ReadSamples(buf[got:])
		got += n
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", r.path, err)
		}
	}

	gotFrames := got / ch
	if gotFrames == 0 {
		return fmt.Errorf("%s: %w", r.path, io.EOF)
	}

	for i := 0; i < frames; i++ {
		var left, right int16
		if i < gotFrames {
			left = buf[i*ch]
			right = left
			if ch > 1 {
				right = buf[i*ch+1]
			}
		}
		binary.LittleEndian.PutUint16(block[i*frameBytes:], uint16(left))
		binary.LittleEndian.PutUint16(block[i*frameBytes+2:], uint16(right))
	}
	return nil
}

// Recover always fails.
func (r *Reader) Recover(err error) error {
	return fmt.Errorf("%w: %w", ErrNotRecoverable, err)
}

// Close releases the underlying file
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

type wavDecoder struct {
	dec      *wav.Decoder
	buf      *goaudio.IntBuffer
	bitDepth int
}

func newWAVDecoder(f *os.File) (sampleDecoder, Metadata, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() || dec.WavAudioFormat != 1 {
		return nil, Metadata{}, ErrNotWAV
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, Metadata{}, fmt.Errorf("unsupported WAV bit depth %d", bitDepth)
	}

	duration, _ := dec.Duration()
	meta := Metadata{
		Duration:   duration,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   bitDepth,
	}
	return &wavDecoder{
		dec:      dec,
		buf:      &goaudio.IntBuffer{Format: dec.Format()},
		bitDepth: bitDepth,
	}, meta, nil
}

func (d *wavDecoder) ReadSamples(dst []int16) (int, error) {
	if cap(d.buf.Data) < len(dst) {
		d.buf.Data = make([]int, len(dst))
	}
	d.buf.Data = d.buf.Data[:len(dst)]

	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = toS16(d.buf.Data[i], d.bitDepth)
	}
	return n, nil
}

// toS16 rescales an integer WAV sample to 16 bits. 8-bit WAV is unsigned.
func toS16(v, bitDepth int) int16 {
	if bitDepth == 8 {
		v -= 128
	}
	return signedToS16(v, bitDepth)
}

// signedToS16 rescales a signed sample of any bit depth to 16 bits, so full
// scale stays full scale.
func signedToS16(v, bitDepth int) int16 {
	if bitDepth <= 16 {
		return int16(v << (16 - bitDepth))
	}
	return int16(v >> (bitDepth - 16))
}

// pcmBufferReader is the part of aiff.Decoder the replay path uses.
type pcmBufferReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// aiffDecoder reads big-endian PCM through the same IntBuffer path as WAV.
// Unlike WAV, AIFF stores 8-bit samples signed.
type aiffDecoder struct {
	dec      pcmBufferReader
	buf      *goaudio.IntBuffer
	bitDepth int
}

func newAIFFDecoder(f *os.File) (sampleDecoder, Metadata, error) {
	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, Metadata{}, ErrNotAIFF
	}
	dec.ReadInfo()

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, Metadata{}, fmt.Errorf("unsupported AIFF bit depth %d", bitDepth)
	}
	format := dec.Format()
	if format == nil {
		return nil, Metadata{}, ErrNotAIFF
	}

	meta := Metadata{
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
		BitDepth:   bitDepth,
	}
	return &aiffDecoder{
		dec:      dec,
		buf:      &goaudio.IntBuffer{Format: format},
		bitDepth: bitDepth,
	}, meta, nil
}

func (d *aiffDecoder) ReadSamples(dst []int16) (int, error) {
	if cap(d.buf.Data) < len(dst) {
		d.buf.Data = make([]int, len(dst))
	}
	d.buf.Data = d.buf.Data[:len(dst)]

	n, err := d.dec.PCMBuffer(d.buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = signedToS16(d.buf.Data[i], d.bitDepth)
	}
	return n, nil
}

type mp3Decoder struct {
	dec *gomp3.Decoder
	buf []byte
}

func newMP3Decoder(f *os.File) (sampleDecoder, Metadata, error) {
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return nil, Metadata{}, err
	}

	// go-mp3 always produces 16-bit little-endian stereo
	meta := Metadata{
		SampleRate: dec.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	}
	if length := dec.Length(); length > 0 && meta.SampleRate > 0 {
		frames := length / 4
		meta.Duration = time.Duration(frames) * time.Second / time.Duration(meta.SampleRate)
	}
	return &mp3Decoder{dec: dec}, meta, nil
}

func (d *mp3Decoder) ReadSamples(dst []int16) (int, error) {
	need := len(dst) * 2
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	d.buf = d.buf[:need]

	n, err := io.ReadFull(d.dec, d.buf)
	samples := n / 2
	for i := 0; i < samples; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(d.buf[2*i:]))
	}
	switch {
	case err == nil:
		return samples, nil
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		if samples == 0 {
			return 0, io.EOF
		}
		return samples, nil
	default:
		return samples, err
	}
}

type oggDecoder struct {
	dec *oggvorbis.Reader
	buf []float32
}

func newOggDecoder(f *os.File) (sampleDecoder, Metadata, error) {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta := Metadata{
		SampleRate: dec.SampleRate(),
		Channels:   dec.Channels(),
		BitDepth:   32,
	}
	if length := dec.Length(); length > 0 && meta.SampleRate > 0 {
		meta.Duration = time.Duration(length) * time.Second / time.Duration(meta.SampleRate)
	}
	return &oggDecoder{dec: dec}, meta, nil
}

func (d *oggDecoder) ReadSamples(dst []int16) (int, error) {
	if cap(d.buf) < len(dst) {
		d.buf = make([]float32, len(dst))
	}
	d.buf = d.buf[:len(dst)]

	n, err := d.dec.Read(d.buf)
	for i := 0; i < n; i++ {
		dst[i] = floatToS16(d.buf[i])
	}
	if n > 0 && errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func floatToS16(v float32) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32768
	default:
		return int16(v * 32767)
	}
}

type flacDecoder struct {
	stream   *flac.Stream
	channels int
	bitDepth int
	buf      []int16
	// decoded samples of the current frame not yet handed out
	pending []int16
}

func newFLACDecoder(f *os.File) (sampleDecoder, Metadata, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, Metadata{}, err
	}

	info := stream.Info
	meta := Metadata{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		BitDepth:   int(info.BitsPerSample),
	}
	if info.NSamples > 0 && info.SampleRate > 0 {
		meta.Duration = time.Duration(info.NSamples) * time.Second / time.Duration(info.SampleRate)
	}
	return &flacDecoder{
		stream:   stream,
		channels: meta.Channels,
		bitDepth: meta.BitDepth,
	}, meta, nil
}

func (d *flacDecoder) ReadSamples(dst []int16) (int, error) {
	n := 0
	for n < len(dst) {
		if len(d.pending) == 0 {
			frame, err := d.stream.ParseNext()
			if err != nil {
				if n > 0 && errors.Is(err, io.EOF) {
					return n, nil
				}
				return n, err
			}
			d.buf = d.buf[:0]
			for i := 0; i < int(frame.BlockSize); i++ {
				for ch := 0; ch < d.channels; ch++ {
					d.buf = append(d.buf, signedToS16(int(frame.Subframes[ch].Samples[i]), d.bitDepth))
				}
			}
			d.pending = d.buf
		}
		copied := copy(dst[n:], d.pending)
		n += copied
		d.pending = d.pending[copied:]
	}
	return n, nil
}
