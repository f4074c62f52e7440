package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/avc/internal/alsa"
	"github.com/linuxmatters/avc/internal/peak"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV encodes interleaved samples to a PCM WAV file in dir.
func writeWAV(t *testing.T, dir string, rate, bitDepth, chans int, samples []int) string {
	t.Helper()
	path := filepath.Join(dir, "in.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, chans, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: chans, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func decodeBlock(block []byte) []int16 {
	out := make([]int16, len(block)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(block[2*i:]))
	}
	return out
}

func quietLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestReaderStereoWAV(t *testing.T) {
	path := writeWAV(t, t.TempDir(), 8000, 16, 2, []int{1, -1, 2, -2, 3, -3, 4, -4, 5, -5})

	r, meta, err := OpenAudioFile(KindWAV, path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 8000, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, 16, meta.BitDepth)
	assert.Equal(t, KindWAV, meta.Codec)

	block := make([]byte, 4*peak.FrameBytes(peak.S16LE{}))
	require.NoError(t, r.Read(block))
	assert.Equal(t, []int16{1, -1, 2, -2, 3, -3, 4, -4}, decodeBlock(block))

	// Last frame padded with silence.
	require.NoError(t, r.Read(block))
	assert.Equal(t, []int16{5, -5, 0, 0, 0, 0, 0, 0}, decodeBlock(block))

	err = r.Read(block)
	assert.ErrorIs(t, err, io.EOF)

	err = r.Recover(err)
	assert.ErrorIs(t, err, ErrNotRecoverable)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderMonoDuplicates(t *testing.T) {
	path := writeWAV(t, t.TempDir(), 8000, 16, 1, []int{100, -200})

	r, _, err := OpenAudioFile(KindWAV, path)
	require.NoError(t, err)
	defer r.Close()

	block := make([]byte, 2*4)
	require.NoError(t, r.Read(block))
	assert.Equal(t, []int16{100, 100, -200, -200}, decodeBlock(block))
}

func TestReaderBitDepths(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		in       int
		want     int16
	}{
		{"8-bit unsigned midpoint", 8, 128, 0},
		{"8-bit unsigned max", 8, 255, 127 << 8},
		{"24-bit", 24, 0x123456, 0x1234},
		{"24-bit negative", 24, -0x400000, -0x4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeWAV(t, t.TempDir(), 8000, tt.bitDepth, 1, []int{tt.in, tt.in})

			r, meta, err := OpenAudioFile(KindWAV, path)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, tt.bitDepth, meta.BitDepth)

			block := make([]byte, 4)
			require.NoError(t, r.Read(block))
			got := decodeBlock(block)
			assert.Equal(t, tt.want, got[0])
			assert.Equal(t, tt.want, got[1])
		})
	}
}

func TestOpenAudioFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := OpenAudioFile(KindWAV, filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.wav")
	require.NoError(t, os.WriteFile(junk, []byte("not audio at all"), 0o644))
	_, _, err = OpenAudioFile(KindWAV, junk)
	assert.ErrorIs(t, err, ErrNotWAV)

	_, _, err = OpenAudioFile(KindAIFF, junk)
	assert.ErrorIs(t, err, ErrNotAIFF)

	_, _, err = OpenAudioFile("aac", junk)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestToS16AndFloatToS16(t *testing.T) {
	assert.Equal(t, int16(-32768), toS16(0, 8))
	assert.Equal(t, int16(-1), toS16(-1, 16))
	assert.Equal(t, int16(0x7fff), toS16(0x7fffffff, 32))
	assert.Equal(t, int16(0), toS16(128, 8))

	// FLAC and AIFF samples are signed at every depth.
	assert.Equal(t, int16(0), signedToS16(0, 8))
	assert.Equal(t, int16(-32768), signedToS16(-128, 8))
	assert.Equal(t, int16(127<<8), signedToS16(127, 8))
	assert.Equal(t, int16(2047<<4), signedToS16(2047, 12))
	assert.Equal(t, int16(-2048<<4), signedToS16(-2048, 12))
	assert.Equal(t, int16(-1), signedToS16(-1, 16))
	assert.Equal(t, int16(0x1234), signedToS16(0x123456, 24))
	assert.Equal(t, int16(-32768), signedToS16(-0x800000, 24))

	assert.Equal(t, int16(32767), floatToS16(1.5))
	assert.Equal(t, int16(-32768), floatToS16(-1))
	assert.Equal(t, int16(16383), floatToS16(0.5))
	assert.Equal(t, int16(0), floatToS16(0))
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		device string
		kind   Kind
		path   string
		ok     bool
	}{
		{"wav:/tmp/a.wav", KindWAV, "/tmp/a.wav", true},
		{"MP3:talk.mp3", KindMP3, "talk.mp3", true},
		{"ogg:x.ogg", KindOgg, "x.ogg", true},
		{"flac:/srv/ref.flac", KindFLAC, "/srv/ref.flac", true},
		{"Aiff:take1.aif", KindAIFF, "take1.aif", true},
		{"hw:1,0", "", "", false},
		{"plughw:Loopback,1", "", "", false},
		{"default", "", "", false},
		{"wav:", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			kind, path, ok := ParseDevice(tt.device)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestOpenFileStream(t *testing.T) {
	path := writeWAV(t, t.TempDir(), 16000, 16, 2, []int{7, 8})

	s, err := Open("wav:"+path, peak.FormatS16LE, 8000, quietLog())
	require.NoError(t, err)
	defer s.Close()

	block := make([]byte, 4)
	require.NoError(t, s.Read(block))
	assert.Equal(t, []int16{7, 8}, decodeBlock(block))

	_, err = Open("wav:"+path, "FLOAT_LE", 8000, quietLog())
	assert.Error(t, err)
}

func TestOpenALSADevice(t *testing.T) {
	_, err := Open("avc-test-no-such-device", "FLOAT_LE", 8000, quietLog())
	require.Error(t, err)
	assert.True(t, errors.Is(err, alsa.ErrUnsupportedFormat) || errors.Is(err, alsa.ErrUnsupported), "got %v", err)
}

type fakePCMBuffer struct {
	chunks [][]int
	err    error
}

func (f *fakePCMBuffer) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if len(f.chunks) == 0 {
		return 0, f.err
	}
	n := copy(buf.Data, f.chunks[0])
	f.chunks = f.chunks[1:]
	return n, nil
}

func TestAIFFDecoderSamples(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		in       []int
		want     []int16
	}{
		{"16-bit", 16, []int{100, -100}, []int16{100, -100}},
		{"8-bit signed", 8, []int{127, -128}, []int16{127 << 8, -128 << 8}},
		{"24-bit", 24, []int{0x123456, -0x400000}, []int16{0x1234, -0x4000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &aiffDecoder{
				dec:      &fakePCMBuffer{chunks: [][]int{tt.in}},
				buf:      &goaudio.IntBuffer{},
				bitDepth: tt.bitDepth,
			}
			dst := make([]int16, 4)
			n, err := d.ReadSamples(dst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dst[:n])

			_, err = d.ReadSamples(dst)
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestAIFFDecoderPassesReadErrors(t *testing.T) {
	errBroken := errors.New("broken chunk")
	d := &aiffDecoder{dec: &fakePCMBuffer{err: errBroken}, buf: &goaudio.IntBuffer{}, bitDepth: 16}
	_, err := d.ReadSamples(make([]int16, 2))
	assert.ErrorIs(t, err, errBroken)
}
