package alsa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "cannot open audio device", Device: "hw:1,0", Code: -2, Msg: "No such file or directory"}
	assert.Equal(t, "cannot open audio device hw:1,0: No such file or directory", err.Error())

	err = &Error{Op: "failed to open mixer", Code: -12, Msg: "Cannot allocate memory"}
	assert.Equal(t, "failed to open mixer: Cannot allocate memory", err.Error())

	var target *Error
	wrapped := errors.Join(errors.New("context"), err)
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, -12, target.Code)
}

func TestOpenCaptureRejectsUnknownFormat(t *testing.T) {
	_, err := OpenCapture("default", "FLOAT_LE", 8000, 2)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrUnsupported), "got %v", err)
}
