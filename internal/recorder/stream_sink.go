package recorder

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// StreamSink mirrors lines to a console stream such as stderr
type StreamSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Name() string {
	return "console"
}

func (s *StreamSink) Write(_ Record, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return errors.Wrap(err, "failed to write console mirror")
	}
	return nil
}

func (s *StreamSink) Close() error {
	return nil
}
