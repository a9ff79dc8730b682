package player

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/adgrid/signage/internal/fsutil"
	"github.com/adgrid/signage/internal/log"
)

// Renderer is the display surface the scheduler drives. Actual graphics are
// outside this core; ConsoleRenderer is the default implementation.
type Renderer interface {
	// ShowMedia presents m for the given duration. An error feeds the
	// scheduler's transient error state.
	ShowMedia(m Media, d time.Duration) error
	// ShowWaiting presents the "no media yet" state.
	ShowWaiting()
	// ShowError presents a transient error message.
	ShowError(msg string)
}

// ConsoleRenderer renders playback decisions as structured log lines. It
// refuses media whose file is missing or not regular, which is what a real
// surface would discover on load.
type ConsoleRenderer struct {
	logger zerolog.Logger
}

// NewConsoleRenderer returns a log-backed renderer.
func NewConsoleRenderer() *ConsoleRenderer {
	return &ConsoleRenderer{logger: log.WithComponent("renderer")}
}

// ShowMedia logs the item being presented.
func (r *ConsoleRenderer) ShowMedia(m Media, d time.Duration) error {
	if err := fsutil.IsRegularFile(m.Path); err != nil {
		return err
	}
	r.logger.Info().
		Str("event", "render.show").
		Str(log.FieldFilename, m.Name).
		Str(log.FieldMediaType, m.Type).
		Str(log.FieldPath, m.Path).
		Bool("from_queue", m.FromQueue).
		Dur("duration", d).
		Msg("showing media")
	return nil
}

// ShowWaiting logs the waiting state.
func (r *ConsoleRenderer) ShowWaiting() {
	r.logger.Info().
		Str("event", "render.waiting").
		Msg("waiting for media")
}

// ShowError logs the transient error state.
func (r *ConsoleRenderer) ShowError(msg string) {
	r.logger.Warn().
		Str("event", "render.error").
		Str("message", msg).
		Msg("render error")
}
