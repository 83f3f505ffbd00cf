package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/engine"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/httpprovider"
	"github.com/specialistvlad/promptgridgo/internal/nativeapi"
	"github.com/specialistvlad/promptgridgo/internal/recording"
	"github.com/specialistvlad/promptgridgo/internal/recordingstore"
	"github.com/specialistvlad/promptgridgo/internal/remotedebug"
	"github.com/specialistvlad/promptgridgo/internal/scheduler"
	"github.com/specialistvlad/promptgridgo/internal/tracing"
)

// dialTimeout bounds the wait for the remote debugger.
const dialTimeout = 5 * time.Second

// Run loads the project, executes the configured graph and prints its
// outputs as JSON. The result is returned whenever the run started.
func (a *App) Run(ctx context.Context) (*scheduler.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.startServers()
	defer a.closeServers(ctx)

	project, err := a.LoadProject(ctx)
	if err != nil {
		return nil, err
	}

	opts := engine.RunOptions{
		Graph:          a.config.Graph,
		Inputs:         a.config.Inputs,
		Context:        a.config.Context,
		Settings:       a.config.Settings,
		Env:            a.environment(),
		Registry:       a.registry,
		MaxConcurrency: a.config.MaxConcurrency,
		RunID:          uuid.NewString(),
		HTTP:           a.httpProvider(),
	}
	if a.config.NativeRoot != "" {
		opts.Native = nativeapi.NewLocal(a.config.NativeRoot)
	}

	cleanup, err := a.attachListeners(ctx, &opts)
	defer cleanup()
	if err != nil {
		return nil, err
	}

	var recorder *recording.Recorder
	if a.config.RecordingDB != "" {
		recorder = recording.NewRecorder()
		opts.Listeners = append(opts.Listeners, recorder.Record)
	}

	a.logger.Info("🚀 Starting run...", "graph", a.config.Graph, "run", opts.RunID)
	res, runErr := engine.Run(ctx, project, opts)
	if recorder != nil && res != nil {
		if err := a.saveRecording(ctx, recorder.Recording()); err != nil {
			a.logger.Error("❌ Failed to save recording", "error", err)
		}
	}
	if res != nil && res.Outputs != nil {
		if err := a.writeOutputs(res.Outputs); err != nil {
			return res, err
		}
	}
	a.logger.Info("🏁 Run finished.", "state", stateOf(res))
	return res, runErr
}

func stateOf(res *scheduler.Result) string {
	if res == nil {
		return "not started"
	}
	return res.State.String()
}

// attachListeners adds the enabled observers. The returned cleanup is always
// safe to call.
func (a *App) attachListeners(ctx context.Context, opts *engine.RunOptions) (func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if a.metrics != nil {
		opts.Listeners = append(opts.Listeners, a.metrics.Record)
	}
	if a.config.TraceStdout {
		tp, err := tracing.NewStdoutProvider(a.outW)
		if err != nil {
			return cleanup, err
		}
		closers = append(closers, func() {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("Trace provider shutdown failed", "error", err)
			}
		})
		opts.Listeners = append(opts.Listeners, tracing.NewListener(tp).Record)
	}
	if a.config.RemoteDebuggerURL != "" {
		relay, closeRelay, err := a.dialRelay(ctx)
		if err != nil {
			return cleanup, err
		}
		closers = append(closers, closeRelay)
		opts.Listeners = append(opts.Listeners, relay.Record)
	}
	return cleanup, nil
}

func (a *App) dialRelay(ctx context.Context) (*remotedebug.Relay, func(), error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, err := remotedebug.Dial(dialCtx, a.config.RemoteDebuggerURL, remotedebug.DialOptions{})
	if err != nil {
		return nil, nil, err
	}
	return remotedebug.NewRelay(conn, remotedebug.Filter{PartialOutputs: true}, a.logger), conn.Close, nil
}

func (a *App) httpProvider() httpprovider.Provider {
	var opts []httpprovider.Option
	if a.config.HTTPRateLimit > 0 {
		burst := max(1, int(a.config.HTTPRateLimit))
		opts = append(opts, httpprovider.WithRateLimit(a.config.HTTPRateLimit, burst))
	}
	return httpprovider.NewClient(opts...)
}

func (a *App) environment() map[string]string {
	if a.env != nil {
		return a.env
	}
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func (a *App) saveRecording(ctx context.Context, rec *recording.Recording) error {
	store, err := recordingstore.Open(ctx, a.config.RecordingDB)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(context.WithoutCancel(ctx), rec); err != nil {
		return err
	}
	a.logger.Info("💾 Recording saved", "run", rec.RunID, "events", len(rec.Events))
	return nil
}

// writeOutputs prints the plain output values as an indented JSON object.
func (a *App) writeOutputs(outputs map[string]datavalue.Value) error {
	plain := make(map[string]any, len(outputs))
	for k, v := range outputs {
		plain[k] = v.Data
	}
	b, err := json.MarshalIndent(plain, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outputs: %w", err)
	}
	_, err = fmt.Fprintln(a.outW, string(b))
	return err
}

// eventPrinter writes each event as one JSON line.
func (a *App) eventPrinter() event.Listener {
	enc := json.NewEncoder(a.outW)
	return func(ev event.Event) {
		if err := enc.Encode(ev); err != nil {
			a.logger.Warn("Failed to print event", "event", ev.Kind, "error", err)
		}
	}
}
