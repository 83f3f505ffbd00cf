package app

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/recording"
	"github.com/specialistvlad/promptgridgo/internal/recordingstore"
)

func (a *App) openStore(ctx context.Context) (*recordingstore.Store, error) {
	return recordingstore.Open(ctx, a.config.RecordingDB)
}

// Recordings lists stored runs, newest first, optionally for one graph.
func (a *App) Recordings(ctx context.Context, graphID graph.GraphID) ([]recordingstore.Summary, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(ctx, graphID)
}

// Recording loads one stored run.
func (a *App) Recording(ctx context.Context, runID string) (*recording.Recording, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Get(ctx, runID)
}

// Replay plays a stored run back, printing every event as a JSON line and
// relaying it to the remote debugger when one is configured.
func (a *App) Replay(ctx context.Context, runID string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	rec, err := a.Recording(ctx, runID)
	if err != nil {
		return err
	}

	bus := event.NewBus()
	bus.SetLogger(a.logger)
	defer bus.Close()
	if _, err := bus.OnAny(a.eventPrinter()); err != nil {
		return err
	}
	if a.config.RemoteDebuggerURL != "" {
		relay, closeRelay, err := a.dialRelay(ctx)
		if err != nil {
			return err
		}
		defer closeRelay()
		if _, err := bus.OnAny(relay.Record); err != nil {
			return err
		}
	}
	bus.Seal()

	err = recording.NewPlayer(a.config.Settings).Replay(ctx, rec, bus)
	bus.Close()
	return err
}
