package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.Logger.GetLevel())

	log.WithField("stream", "capture").Debug("hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "capture", rec["stream"])

	runID, ok := rec["run_id"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(runID)
	assert.NoError(t, err)
}

func TestNewDefaults(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.Logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Logger.Formatter)

	log.Debug("dropped")
	assert.Empty(t, buf.String())
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunIDsDiffer(t *testing.T) {
	a, err := New(Options{}, &bytes.Buffer{})
	require.NoError(t, err)
	b, err := New(Options{}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Data["run_id"], b.Data["run_id"])
}
