package cli

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tabtimer/internal/bridge"
	"tabtimer/internal/config"
	"tabtimer/internal/core/countdown"
	"tabtimer/internal/core/icon"
	"tabtimer/internal/core/notify"
	"tabtimer/internal/core/syncer"
	"tabtimer/internal/platform"
	"tabtimer/internal/remote"
	"tabtimer/internal/storage"
	"tabtimer/internal/ui/tray"
)

func newRunCmd(app *App) *cobra.Command {
	var headless bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the countdown daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := app.Settings
			if headless {
				settings.Headless = true
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, settings)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "Run without the tray icon")
	return cmd
}

// asyncCompleter runs completion side effects off the tick loop.
type asyncCompleter struct {
	fanOut *notify.FanOut
	wg     *sync.WaitGroup
}

func (completer asyncCompleter) Complete(ctx context.Context, sound string) {
	completer.wg.Add(1)
	go func() {
		defer completer.wg.Done()
		completer.fanOut.Complete(ctx, sound)
	}()
}

func runDaemon(ctx context.Context, settings config.Settings) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	guard, err := platform.AcquireSingleInstance(settings.ListenAddr)
	if err != nil {
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	db, err := storage.OpenSQLite(ctx, settings.DataPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	stateStore := storage.NewStateStore(db)
	presetStore := storage.NewPresetStore(db)
	hub := bridge.NewHub()

	var (
		engine     *countdown.Engine
		reconciler *syncer.Reconciler
		ui         fyne.App
		trayMgr    *tray.Manager
		renderer   icon.Renderer
		badge      icon.Badge
		notifier   notify.Notifier = platform.NewCommandNotifier(config.AppName)
	)

	if !settings.Headless {
		ui = fyneapp.NewWithID("com.tabtimer.daemon")
		trayMgr, err = tray.New(ui, tray.Callbacks{
			OnStartPreset: func(id string) {
				go startPreset(ctx, engine, presetStore, id)
			},
			OnCancel: func() {
				go func() {
					if err := engine.Cancel(ctx); err != nil {
						log.Printf("tray: cancel: %v", err)
					}
				}()
			},
			OnSync: func() {
				if reconciler == nil {
					log.Printf("tray: sync unavailable")
					return
				}
				go func() {
					if _, err := reconciler.Force(ctx); err != nil {
						log.Printf("tray: sync: %v", err)
					}
					refreshTray(ctx, trayMgr, presetStore)
				}()
			},
			OnQuit: cancel,
		}, settings.SyncEnabled())
		if err != nil {
			log.Printf("tray: %v; continuing headless", err)
			ui = nil
		} else {
			renderer, badge, notifier = trayMgr, trayMgr, trayMgr
		}
	}

	chain := notify.NewChain(settings.PlayTimeout,
		notify.PlayerStrategy{Player: platform.NewCommandPlayer(settings.SoundsDir)},
		notify.KnownSurfacesStrategy{Surfaces: hub},
		notify.ActiveSurfaceStrategy{Surfaces: hub},
	)
	var completions sync.WaitGroup
	completer := asyncCompleter{fanOut: notify.NewFanOut(notifier, chain, settings.Volume), wg: &completions}
	engine = countdown.New(stateStore, presetStore, icon.NewPresenter(renderer, badge), completer, countdown.Config{
		TickInterval: settings.TickInterval,
	})
	defer engine.Close()
	if err := engine.Reset(ctx); err != nil {
		return err
	}

	var bridgeSyncer bridge.Syncer
	if settings.SyncEnabled() {
		store, err := remote.Open(ctx, settings.RemoteDSN, settings.SyncProfile, settings.QuotaBytesPerItem)
		if err != nil {
			log.Printf("sync: remote unavailable, sync disabled: %v", err)
		} else {
			defer store.Close()
			reconciler = syncer.New(presetStore, store, syncer.Config{
				Delay:   settings.SyncDelay,
				Timeout: settings.SyncTimeout,
			})
			bridgeSyncer = reconciler
		}
	}
	presetStore.SetOnChange(func() {
		if reconciler != nil {
			reconciler.Schedule()
		}
		refreshTray(ctx, trayMgr, presetStore)
	})

	server := bridge.NewServer(engine, presetStore, bridgeSyncer, hub)
	events := engine.Subscribe(64)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		engine.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		hub.Pump(groupCtx, events)
		return nil
	})
	group.Go(func() error {
		return server.Serve(groupCtx, guard.Listener())
	})
	if reconciler != nil {
		group.Go(func() error {
			if outcome, err := reconciler.Reconcile(groupCtx); err != nil {
				log.Printf("sync: initial reconcile: %v", err)
			} else {
				log.Printf("sync: initial reconcile: %s", outcome)
			}
			refreshTray(groupCtx, trayMgr, presetStore)
			return nil
		})
	}
	refreshTray(ctx, trayMgr, presetStore)
	log.Printf("daemon: running, bridge on %s", guard.Address())

	if ui != nil {
		go func() {
			<-groupCtx.Done()
			fyne.Do(ui.Quit)
		}()
		ui.Run()
		cancel()
	}
	err = group.Wait()

	shutdown(reconciler, &completions)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func startPreset(ctx context.Context, engine *countdown.Engine, presets *storage.PresetStore, id string) {
	preset, err := presets.GetPreset(ctx, id)
	if err != nil {
		log.Printf("tray: start preset: %v", err)
		return
	}
	if err := engine.Start(ctx, countdown.StartRequest{
		TotalSeconds: preset.TotalSeconds(),
		PresetID:     preset.ID,
	}); err != nil {
		log.Printf("tray: start preset: %v", err)
	}
}

func refreshTray(ctx context.Context, trayMgr *tray.Manager, presets *storage.PresetStore) {
	if trayMgr == nil {
		return
	}
	list, err := presets.ListPresets(ctx)
	if err != nil {
		log.Printf("tray: list presets: %v", err)
		return
	}
	trayMgr.SetPresets(list)
}

// shutdown flushes a pending sync and waits briefly for completion effects.
func shutdown(reconciler *syncer.Reconciler, completions *sync.WaitGroup) {
	if reconciler != nil {
		if reconciler.Pending() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := reconciler.Force(ctx); err != nil {
				log.Printf("sync: flush on shutdown: %v", err)
			}
			cancel()
		}
		reconciler.Close()
	}

	done := make(chan struct{})
	go func() {
		completions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Printf("daemon: completion effects still running at exit")
	}
}
