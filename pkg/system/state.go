package system

import (
	"errors"
	"fmt"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/textdb"
	"github.com/sirupsen/logrus"
)

var _ wificonnect.StateStore = &StateStore{}

// StateStore keeps the hotspot record in a single text file that survives
// across invocations of the program.
type StateStore struct {
	file *textdb.TextFile[wificonnect.HotspotState, *wificonnect.HotspotState]
	log  logrus.FieldLogger
}

func NewStateStore(config wificonnect.Config, log logrus.FieldLogger) *StateStore {
	return &StateStore{
		file: textdb.New[wificonnect.HotspotState](config.StatePath()),
		log:  log.WithField("system", "state"),
	}
}

// Load returns ErrNoState when no record exists. A record that cannot be
// decoded is logged and also reported as ErrNoState.
func (s *StateStore) Load() (wificonnect.HotspotState, error) {
	state, err := s.file.Load()
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, textdb.ErrNotExist):
		return wificonnect.HotspotState{}, wificonnect.ErrNoState
	case errors.Is(err, textdb.ErrEmpty), errors.Is(err, wificonnect.ErrInvalidState):
		s.log.WithError(err).Warn("ignoring unreadable hotspot state")
		return wificonnect.HotspotState{}, wificonnect.ErrNoState
	default:
		return wificonnect.HotspotState{}, fmt.Errorf("failed to load hotspot state: %w", err)
	}
}

func (s *StateStore) Save(state wificonnect.HotspotState) error {
	if err := s.file.Save(&state); err != nil {
		return fmt.Errorf("failed to save hotspot state: %w", err)
	}
	return nil
}

func (s *StateStore) Clear() error {
	return s.file.Remove()
}
