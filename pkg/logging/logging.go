package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/sirupsen/logrus"
)

// New returns the process logger. Output goes to stderr; when stderr is
// connected to the journal, entries are also sent to journald with their
// priority and fields.
func New(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	if os.Getenv("JOURNAL_STREAM") != "" && journal.Enabled() {
		log.AddHook(&JournalHook{})
		log.SetOutput(io.Discard)
	}

	return log
}

// Discard is a logger for tests and library callers that want silence.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type JournalHook struct{}

func (h *JournalHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *JournalHook) Fire(entry *logrus.Entry) error {
	vars := make(map[string]string, len(entry.Data))
	for k, v := range entry.Data {
		vars[journalField(k)] = stringify(v)
	}
	return journal.Send(entry.Message, journalPriority(entry.Level), vars)
}

func journalPriority(level logrus.Level) journal.Priority {
	switch level {
	case logrus.PanicLevel:
		return journal.PriEmerg
	case logrus.FatalLevel:
		return journal.PriCrit
	case logrus.ErrorLevel:
		return journal.PriErr
	case logrus.WarnLevel:
		return journal.PriWarning
	case logrus.InfoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journald field names are upper case letters, digits and underscores.
func journalField(k string) string {
	out := make([]byte, 0, len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 || out[0] == '_' {
		out = append([]byte("F"), out...)
	}
	return string(out)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	case interface{ String() string }:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
