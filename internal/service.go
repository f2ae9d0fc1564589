package internal

import (
	"errors"
	"io"

	"github.com/deevus/pgrepl-tui/replication"
)

// Services holds the replication data source for one server and the
// resources that must be released with it.
type Services struct {
	Replication replication.Source

	closers []io.Closer
}

// NewServices creates a Services container from the given source. Closers
// are released in reverse order by Close.
func NewServices(src replication.Source, closers ...io.Closer) *Services {
	return &Services{
		Replication: src,
		closers:     closers,
	}
}

// Close releases every registered resource and joins their errors.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
