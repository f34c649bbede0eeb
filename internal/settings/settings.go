// Package settings stores the display preferences kept next to the ledger:
// the dark-mode flag and the background image.
package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/events"
	"dompet/internal/kv"
	"dompet/internal/log"
)

const backgroundPrefix = "data:image/"

var ErrInvalidBackground = errors.New("background must be empty or a data:image URI")

type Settings struct {
	DarkMode   bool   `json:"dark_mode"`
	Background string `json:"background"`
}

// Patch updates only the fields that are set.
type Patch struct {
	DarkMode   *bool   `json:"dark_mode,omitempty"`
	Background *string `json:"background,omitempty"`
}

type Service struct {
	kv     kv.Store
	pub    events.Publisher
	logger *log.Logger
	now    func() time.Time
}

func New(store kv.Store, pub events.Publisher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default(log.ComponentSettings)
	}
	return &Service{
		kv:     store,
		pub:    pub,
		logger: logger.WithComponent(log.ComponentSettings),
		now:    time.Now,
	}
}

// Get reads both settings. A missing or unparseable flag reads as off.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	var out Settings
	raw, _, err := s.kv.Get(ctx, kv.KeyDarkMode)
	if err != nil {
		return Settings{}, &core.PersistenceError{Op: "read " + kv.KeyDarkMode, Err: err}
	}
	out.DarkMode, _ = strconv.ParseBool(raw)

	out.Background, _, err = s.kv.Get(ctx, kv.KeyBackgroundImage)
	if err != nil {
		return Settings{}, &core.PersistenceError{Op: "read " + kv.KeyBackgroundImage, Err: err}
	}
	return out, nil
}

func (s *Service) SetDarkMode(ctx context.Context, on bool) error {
	if err := s.kv.Set(ctx, kv.KeyDarkMode, strconv.FormatBool(on)); err != nil {
		return &core.PersistenceError{Op: "write " + kv.KeyDarkMode, Err: err}
	}
	s.changed(ctx, kv.KeyDarkMode)
	return nil
}

// SetBackground stores a data URI. The empty string removes the background.
func (s *Service) SetBackground(ctx context.Context, uri string) error {
	uri = strings.TrimSpace(uri)
	if uri != "" && !strings.HasPrefix(uri, backgroundPrefix) {
		return &core.ValidationError{Field: "background", Err: ErrInvalidBackground}
	}

	var err error
	if uri == "" {
		err = s.kv.Delete(ctx, kv.KeyBackgroundImage)
	} else {
		err = s.kv.Set(ctx, kv.KeyBackgroundImage, uri)
	}
	if err != nil {
		return &core.PersistenceError{Op: "write " + kv.KeyBackgroundImage, Err: err}
	}
	s.changed(ctx, kv.KeyBackgroundImage)
	return nil
}

// Apply validates the whole patch before writing any of it.
func (s *Service) Apply(ctx context.Context, p Patch) (Settings, error) {
	if p.Background != nil {
		bg := strings.TrimSpace(*p.Background)
		if bg != "" && !strings.HasPrefix(bg, backgroundPrefix) {
			return Settings{}, &core.ValidationError{Field: "background", Err: ErrInvalidBackground}
		}
	}
	if p.DarkMode != nil {
		if err := s.SetDarkMode(ctx, *p.DarkMode); err != nil {
			return Settings{}, err
		}
	}
	if p.Background != nil {
		if err := s.SetBackground(ctx, *p.Background); err != nil {
			return Settings{}, err
		}
	}
	return s.Get(ctx)
}

func (s *Service) changed(ctx context.Context, key string) {
	s.logger.InfoContext(ctx, "Setting changed", log.FieldSettingKey, key)
	if s.pub == nil {
		return
	}
	err := s.pub.Publish(ctx, events.Event{Kind: events.SettingsChanged, At: s.now(), Key: key})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish settings change",
			log.FieldSettingKey, key,
			log.FieldError, err)
	}
}
