//go:build linux && cgo

package alsa

/*
#cgo pkg-config: alsa
#include <alsa/asoundlib.h>
#include <stdlib.h>

// Negotiate interleaved capture and prepare the stream. On failure *stage
// names the step that failed.
static int avc_configure_capture(snd_pcm_t *handle, snd_pcm_format_t format,
                                 unsigned int *rate, unsigned int channels,
                                 const char **stage) {
	snd_pcm_hw_params_t *params;
	int err;

	snd_pcm_hw_params_alloca(&params);

	*stage = "cannot initialize hardware parameter structure";
	if ((err = snd_pcm_hw_params_any(handle, params)) < 0) return err;

	*stage = "cannot set access type";
	if ((err = snd_pcm_hw_params_set_access(handle, params, SND_PCM_ACCESS_RW_INTERLEAVED)) < 0) return err;

	*stage = "cannot set sample format";
	if ((err = snd_pcm_hw_params_set_format(handle, params, format)) < 0) return err;

	*stage = "cannot set sample rate";
	if ((err = snd_pcm_hw_params_set_rate_near(handle, params, rate, 0)) < 0) return err;

	*stage = "cannot set channel count";
	if ((err = snd_pcm_hw_params_set_channels(handle, params, channels)) < 0) return err;

	*stage = "cannot set parameters";
	if ((err = snd_pcm_hw_params(handle, params)) < 0) return err;

	*stage = "cannot prepare device for use";
	if ((err = snd_pcm_prepare(handle)) < 0) return err;

	*stage = NULL;
	return 0;
}

static snd_mixer_elem_t *avc_find_selem(snd_mixer_t *handle, const char *name) {
	snd_mixer_selem_id_t *sid;
	snd_mixer_elem_t *elem;

	if (snd_mixer_selem_id_malloc(&sid) < 0) return NULL;
	snd_mixer_selem_id_set_index(sid, 0);
	snd_mixer_selem_id_set_name(sid, name);
	elem = snd_mixer_find_selem(handle, sid);
	snd_mixer_selem_id_free(sid);
	return elem;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/linuxmatters/avc/internal/peak"
)

var pcmFormats = map[peak.Format]C.snd_pcm_format_t{
	peak.FormatS16LE: C.snd_pcm_format_t(C.SND_PCM_FORMAT_S16_LE),
}

func newError(op, device string, code int) *Error {
	return &Error{
		Op:     op,
		Device: device,
		Code:   code,
		Msg:    C.GoString(C.snd_strerror(C.int(code))),
	}
}

// PCM is an open capture stream.
type PCM struct {
	handle     *C.snd_pcm_t
	device     string
	frameBytes int
	rate       uint
}

// OpenCapture opens device for interleaved capture. The device may settle on
// a rate other than the one requested; Rate reports it.
func OpenCapture(device string, format peak.Format, rate uint, channels int) (*PCM, error) {
	pcmFormat, ok := pcmFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	cdev := C.CString(device)
	defer C.free(unsafe.Pointer(cdev))

	var handle *C.snd_pcm_t
	if rc := C.snd_pcm_open(&handle, cdev, C.snd_pcm_stream_t(C.SND_PCM_STREAM_CAPTURE), 0); rc < 0 {
		return nil, newError("cannot open audio device", device, int(rc))
	}

	cRate := C.uint(rate)
	var stage *C.char
	if rc := C.avc_configure_capture(handle, pcmFormat, &cRate, C.uint(channels), &stage); rc < 0 {
		C.snd_pcm_close(handle)
		return nil, newError(C.GoString(stage), device, int(rc))
	}

	return &PCM{
		handle:     handle,
		device:     device,
		frameBytes: int(C.snd_pcm_format_physical_width(pcmFormat)) / 8 * channels,
		rate:       uint(cRate),
	}, nil
}

// Rate returns the negotiated sample rate.
func (p *PCM) Rate() uint {
	return p.rate
}

// Read blocks until block holds whole frames.
func (p *PCM) Read(block []byte) error {
	frames := len(block) / p.frameBytes
	for done := 0; done < frames; {
		n := C.snd_pcm_readi(p.handle, unsafe.Pointer(&block[done*p.frameBytes]), C.snd_pcm_uframes_t(frames-done))
		if n < 0 {
			return newError("read from interface failed", p.device, int(n))
		}
		done += int(n)
	}
	return nil
}

// Recover handles overruns and suspends reported by Read.
func (p *PCM) Recover(err error) error {
	var aerr *Error
	if !errors.As(err, &aerr) {
		return fmt.Errorf("cannot recover %s: %w", p.device, err)
	}
	if rc := C.snd_pcm_recover(p.handle, C.int(aerr.Code), 0); rc < 0 {
		return newError("failed to recover", p.device, int(rc))
	}
	return nil
}

func (p *PCM) Close() error {
	if p.handle == nil {
		return nil
	}
	rc := C.snd_pcm_close(p.handle)
	p.handle = nil
	if rc < 0 {
		return newError("cannot close audio device", p.device, int(rc))
	}
	return nil
}

// Mixer is a simple-mixer playback element on one card.
type Mixer struct {
	handle  *C.snd_mixer_t
	elem    *C.snd_mixer_elem_t
	card    string
	element string
}

// OpenMixer attaches to card and looks up the named playback element.
func OpenMixer(card, element string) (m *Mixer, err error) {
	var handle *C.snd_mixer_t
	if rc := C.snd_mixer_open(&handle, 0); rc != 0 {
		return nil, newError("failed to open mixer", "", int(rc))
	}
	defer func() {
		if err != nil {
			C.snd_mixer_close(handle)
		}
	}()

	ccard := C.CString(card)
	defer C.free(unsafe.Pointer(ccard))
	if rc := C.snd_mixer_attach(handle, ccard); rc != 0 {
		return nil, newError("failed to attach card to mixer", card, int(rc))
	}
	if rc := C.snd_mixer_selem_register(handle, nil, nil); rc != 0 {
		return nil, newError("failed to register simple mixer element", card, int(rc))
	}
	if rc := C.snd_mixer_load(handle); rc != 0 {
		return nil, newError("failed to load mixer", card, int(rc))
	}

	cname := C.CString(element)
	defer C.free(unsafe.Pointer(cname))
	elem := C.avc_find_selem(handle, cname)
	if elem == nil {
		return nil, fmt.Errorf("%w: %q on %s", ErrControlNotFound, element, card)
	}

	return &Mixer{handle: handle, elem: elem, card: card, element: element}, nil
}

// Range returns the element's playback volume limits.
func (m *Mixer) Range() (lo, hi int64, err error) {
	var cmin, cmax C.long
	if rc := C.snd_mixer_selem_get_playback_volume_range(m.elem, &cmin, &cmax); rc < 0 {
		return 0, 0, newError("cannot read volume range", m.element, int(rc))
	}
	return int64(cmin), int64(cmax), nil
}

func (m *Mixer) Volume() (int64, error) {
	var v C.long
	rc := C.snd_mixer_selem_get_playback_volume(m.elem, C.snd_mixer_selem_channel_id_t(C.SND_MIXER_SCHN_MONO), &v)
	if rc < 0 {
		return 0, newError("cannot read playback volume", m.element, int(rc))
	}
	return int64(v), nil
}

func (m *Mixer) SetVolume(v int64) error {
	rc := C.snd_mixer_selem_set_playback_volume(m.elem, C.snd_mixer_selem_channel_id_t(C.SND_MIXER_SCHN_MONO), C.long(v))
	if rc < 0 {
		return newError("cannot set playback volume", m.element, int(rc))
	}
	return nil
}

func (m *Mixer) HandleEvents() error {
	if rc := C.snd_mixer_handle_events(m.handle); rc < 0 {
		return newError("cannot handle mixer events", m.card, int(rc))
	}
	return nil
}

func (m *Mixer) Close() error {
	if m.handle == nil {
		return nil
	}
	rc := C.snd_mixer_close(m.handle)
	m.handle = nil
	m.elem = nil
	if rc < 0 {
		return newError("cannot close mixer", m.card, int(rc))
	}
	return nil
}
