package recording

import (
	"context"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// Emitter receives replayed events. *event.Bus satisfies it.
type Emitter interface {
	Emit(ev event.Event)
}

// Player re-emits recorded events.
type Player struct {
	// Latency is the fixed delay between replayed events. Zero emits them
	// back to back.
	Latency time.Duration
}

// NewPlayer builds a player honoring the playback latency in settings.
func NewPlayer(settings node.Settings) *Player {
	return &Player{Latency: settings.RecordingPlaybackLatency}
}

// Replay emits every event of rec onto out in recorded order. It stops
// early when ctx is cancelled.
func (p *Player) Replay(ctx context.Context, rec *Recording, out Emitter) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Replaying recording", "run", rec.RunID, "events", len(rec.Events), "latency", p.Latency)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for i, entry := range rec.Events {
		if err := ctx.Err(); err != nil {
			logger.Info("🛑 Replay cancelled", "run", rec.RunID, "emitted", i)
			return err
		}
		if i > 0 && p.Latency > 0 {
			if timer == nil {
				timer = time.NewTimer(p.Latency)
			} else {
				timer.Reset(p.Latency)
			}
			select {
			case <-ctx.Done():
				logger.Info("🛑 Replay cancelled", "run", rec.RunID, "emitted", i)
				return ctx.Err()
			case <-timer.C:
			}
		}
		out.Emit(entry.Event)
	}

	logger.Info("✅ Finished replay", "run", rec.RunID)
	return nil
}
