package dataset

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/logger"
)

// Session holds the currently loaded dataset. Loads are all-or-nothing: a
// failed load leaves the previous dataset in place.
type Session struct {
	opts    Options
	log     *zap.Logger
	current *Dataset
}

// NewSession creates an empty session
func NewSession(opts Options) *Session {
	return &Session{
		opts: opts,
		log:  logger.OrNop(opts.Log),
	}
}

// Current returns the loaded dataset, or nil before the first successful load
func (s *Session) Current() *Dataset {
	return s.current
}

// Load builds a dataset from raw and makes it current
func (s *Session) Load(raw []byte, source string) (*Dataset, error) {
	d, err := Build(raw, source, s.opts)
	if err != nil {
		s.log.Warn("Load failed, keeping previous dataset",
			zap.String("source", source),
			zap.Bool("has_previous", s.current != nil),
			zap.Error(err))
		return nil, err
	}
	s.current = d
	return d, nil
}

// LoadFile reads path and loads it
func (s *Session) LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.Load(data, path)
}
