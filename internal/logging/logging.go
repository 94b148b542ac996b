package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Debug enables per-reading lines.
func New(debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Mirror silences l's own output and forwards every entry at or above
// min to fn instead. The dashboard uses it to show a log tail.
func Mirror(l *logrus.Logger, min logrus.Level, fn func(*logrus.Entry)) {
	l.SetOutput(io.Discard)
	l.AddHook(&funcHook{levels: levelsUpTo(min), fn: fn})
}

type funcHook struct {
	levels []logrus.Level
	fn     func(*logrus.Entry)
}

func (h *funcHook) Levels() []logrus.Level { return h.levels }

func (h *funcHook) Fire(e *logrus.Entry) error {
	h.fn(e)
	return nil
}

func levelsUpTo(min logrus.Level) []logrus.Level {
	var out []logrus.Level
	for _, lv := range logrus.AllLevels {
		if lv <= min {
			out = append(out, lv)
		}
	}
	return out
}
