// Command hxm is the window manager's process entry point: it owns the one
// synchronous boundary (startup extension probes), the WM-selection guard,
// and the thin --reconfigure/--restart/--exit flag contract.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jopamo/hxm/internal/config"
	"github.com/jopamo/hxm/internal/ipc"
	"github.com/jopamo/hxm/internal/keybind"
	"github.com/jopamo/hxm/internal/sessionlog"
	"github.com/jopamo/hxm/internal/statestore"
	"github.com/jopamo/hxm/internal/testutil"
	"github.com/jopamo/hxm/internal/wm"
	"github.com/jopamo/hxm/internal/wmselect"
	"github.com/jopamo/hxm/internal/workerutil"
	"github.com/spf13/cobra"
)

// tickPeriod throttles repaint/deferred-wakeup wakeups when nothing else is
// pending.
const tickPeriod = 16 * time.Millisecond

var (
	flagConfig      string
	flagSocket      string
	flagReconfigure bool
	flagRestart     bool
	flagExit        bool
)

var rootCmd = &cobra.Command{
	Use:   "hxm",
	Short: "hxm is a reparenting X11 window manager core",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", config.DefaultPath(), "path to config.yaml")
	rootCmd.Flags().StringVar(&flagSocket, "socket", "", "control socket address (defaults per-platform)")
	rootCmd.Flags().BoolVar(&flagReconfigure, "reconfigure", false, "signal a running instance to reload its config")
	rootCmd.Flags().BoolVar(&flagRestart, "restart", false, "signal a running instance to restart")
	rootCmd.Flags().BoolVar(&flagExit, "exit", false, "signal a running instance to exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// run implements both invocation modes: a bare invocation starts the core,
// any of --reconfigure/--restart/--exit instead signals an already running
// instance over the control socket and exits with its result.
func run(cmd *cobra.Command, args []string) error {
	if flagReconfigure || flagRestart || flagExit {
		return signalRunningInstance()
	}
	return runCore()
}

func signalRunningInstance() error {
	command := "reconfigure"
	switch {
	case flagExit:
		command = "exit"
	case flagRestart:
		command = "restart"
	}
	resp, err := ipc.SendCommand(flagSocket, ipc.NewRequest(command))
	if err != nil {
		if ipc.IsConnectionError(err) {
			fmt.Fprintln(os.Stderr, "hxm: no running instance found")
			os.Exit(1)
		}
		return err
	}
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
	os.Exit(resp.ExitCode)
	return nil
}

func runCore() error {
	cfg, warning := config.Load(flagConfig)
	if warning != "" {
		fmt.Fprintln(os.Stderr, "hxm: "+warning)
	}

	diag := newDiagRing(256)
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	tee := sessionlog.NewTeeHandler(base, slog.LevelWarn, func(ts time.Time, level slog.Level, msg, group string) {
		diag.push(ts, level, msg, group)
	})
	log := slog.New(tee)

	// No concrete X11 binding ships in this module; the fake
	// transport stands in so the core, the control socket, and the CLI
	// contract are all runnable and testable end-to-end. A real deployment
	// links its own transport.Transport implementation in place of this.
	tr := testutil.NewFakeTransport()

	lock, err := wmselect.TryAcquire(tr, tr.RootWindow())
	if err != nil {
		if errors.Is(err, wmselect.ErrAlreadyRunning) {
			fmt.Fprintln(os.Stderr, "hxm: another window manager is already running")
			os.Exit(1)
		}
		return err
	}
	_ = lock

	storePath := filepath.Join(filepath.Dir(flagConfig), "placement.db")
	store, err := statestore.Open(storePath)
	if err != nil {
		log.Warn("statestore open failed, placement memory disabled", "error", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	srv, err := wm.NewServer(tr, cfg, log, store)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hxm: "+err.Error())
		os.Exit(2)
	}
	srv.SetConfigPath(flagConfig)
	// No Renderer is installed: damage is tracked and discarded, matching
	// the headless core this binary runs without a real display connection.

	mgr, parseErrs := keybind.Parse(cfg.GlobalBindings, demoKeysymResolver)
	for _, e := range parseErrs {
		log.Warn("keybind parse error", "error", e)
	}
	escapeCode, _ := demoKeysymResolver("escape")
	srv.SetKeybinds(mgr, escapeCode)

	if err := srv.Start([]string{"RandR", "Damage"}); err != nil {
		return fmt.Errorf("hxm: start: %w", err)
	}

	ctrl := ipc.NewServer(flagSocket, ipc.ServerExecutor{Controller: srv}, log)
	if err := ctrl.Start(); err != nil {
		log.Warn("control socket unavailable", "error", err)
	} else {
		defer ctrl.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var workers sync.WaitGroup
	defer workers.Wait()

	// Live config edits are equivalent to --reconfigure: the watcher's
	// signal feeds the same reload flag the control socket sets.
	if watcher, werr := config.WatchFile(flagConfig); werr != nil {
		log.Warn("config watch unavailable", "error", werr)
	} else {
		defer watcher.Close()
		workerutil.Supervise(ctx, "config-watch", &workers, func(ctx context.Context) {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-watcher.Reload:
					if !ok {
						return
					}
					srv.RequestReload()
				}
			}
		}, workerutil.Options{})
	}

	wait, err := newWaiter(tickPeriod)
	if err != nil {
		return fmt.Errorf("hxm: multiplex waiter: %w", err)
	}
	defer wait.Close()

	return srv.Run(ctx, wait)
}
