package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/zeittresor/csforge/internal/domain"
	"github.com/zeittresor/csforge/internal/infrastructure/diagnostics"
	"github.com/zeittresor/csforge/internal/ports"
)

const progressBufferSize = 256

// ChannelSink decouples progress rendering from the build. Publish never
// blocks: when the consumer lags behind, events are dropped rather than
// stalling the compiler pipeline.
type ChannelSink struct {
	ch   chan domain.ProgressEvent
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewChannelSink starts a consumer goroutine that renders events to out until
// Close is called.
func NewChannelSink(out io.Writer, quiet bool) *ChannelSink {
	s := &ChannelSink{
		ch:   make(chan domain.ProgressEvent, progressBufferSize),
		done: make(chan struct{}),
	}
	go s.consume(out, quiet)
	return s
}

// Publish implements ports.ProgressSink.
func (s *ChannelSink) Publish(event domain.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
	default:
		// Consumer is behind; drop rather than block the build.
	}
}

// Close stops accepting events and waits for the consumer to drain.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	<-s.done
}

func (s *ChannelSink) consume(out io.Writer, quiet bool) {
	defer close(s.done)
	var lastPhase domain.Phase
	for event := range s.ch {
		if event.Phase != domain.PhaseRunning {
			fmt.Fprintf(out, "[%3d%%] %s: %s\n", event.Percent, event.Phase, event.Message)
			lastPhase = event.Phase
			continue
		}
		if lastPhase != domain.PhaseRunning {
			// Phase transition into the compiler run.
			fmt.Fprintf(out, "[%3d%%] %s\n", event.Percent, event.Message)
			lastPhase = domain.PhaseRunning
			continue
		}
		// Compiler output lines: suppress spinner frames and transfer bars
		// unless the caller wants everything.
		if quiet || diagnostics.Noisy(event.Message) {
			continue
		}
		fmt.Fprintf(out, "  %s\n", event.Message)
	}
}

var _ ports.ProgressSink = (*ChannelSink)(nil)
