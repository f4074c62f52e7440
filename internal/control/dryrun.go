package control

import "github.com/sirupsen/logrus"

// dryRunMixer reads through to the wrapped mixer and drops writes.
type dryRunMixer struct {
	Mixer
	log *logrus.Entry
}

// DryRun wraps m so that volume changes are logged at debug level instead of
// written.
func DryRun(m Mixer, log *logrus.Entry) Mixer {
	return &dryRunMixer{Mixer: m, log: log}
}

func (m *dryRunMixer) SetVolume(v int64) error {
	m.log.WithFields(logrus.Fields{
		"function": "dryRunMixer.SetVolume",
		"volume":   v,
	}).Debug("Dry run, volume not written")
	return nil
}
