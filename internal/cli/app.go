package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tally/internal/logging"
	"github.com/mesh-intelligence/tally/internal/remote"
	"github.com/mesh-intelligence/tally/internal/session"
	"github.com/mesh-intelligence/tally/internal/syncer"
	"github.com/mesh-intelligence/tally/internal/workspace"
	"github.com/mesh-intelligence/tally/pkg/sqlite"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// app is everything one command invocation works with.
type app struct {
	settings settings
	logger   *zap.Logger
	store    types.LocalStore
	session  *session.File
	remote   remote.Store
	sched    *syncer.Scheduler
	ws       *workspace.Workspace

	// flush makes close push pending changes before exiting.
	flush bool
}

// openApp wires the local store, session, remote and scheduler for one
// invocation. The caller must call close.
func openApp() (*app, error) {
	configDir, err := resolveConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}
	s, err := resolveSettings(v, configDir, flags.dataDir)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(s.log)
	if err != nil {
		return nil, err
	}

	store := sqlite.NewBackend(logger.Named("store"))
	if err := store.Attach(s.store); err != nil {
		return nil, fmt.Errorf("attach local store: %w", err)
	}

	sess := session.OpenFile(filepath.Join(configDir, session.FileName), s.secret)
	rs, err := remote.Open(s.remote, sess.AccessToken, logger.Named("remote"))
	if err != nil {
		_ = store.Detach()
		return nil, fmt.Errorf("open remote: %w", err)
	}

	ws := workspace.Open(store, workspace.Options{Tags: s.tags, Logger: logger})
	sched := syncer.New(store, rs, sess, syncer.Options{
		Debounce: s.debounce,
		Snapshot: ws.Persist,
		Reload:   ws.Reload,
		Logger:   logger,
	})
	if flags.offline {
		sched.SetOnline(false)
	}
	ws.SetSyncer(sched)

	return &app{
		settings: s,
		logger:   logger,
		store:    store,
		session:  sess,
		remote:   rs,
		sched:    sched,
		ws:       ws,
	}, nil
}

// markChanged asks close to flush before the process exits.
func (a *app) markChanged() {
	a.flush = true
}

// close flushes changes when needed, waiting at most sync.exit_wait, then
// releases everything.
func (a *app) close(ctx context.Context) error {
	if a.flush {
		a.sched.FlushOnExit()
	}
	waitCtx, cancel := context.WithTimeout(ctx, a.settings.exitWait)
	defer cancel()
	if err := a.sched.Wait(waitCtx); err != nil {
		a.logger.Warn("exiting before sync finished", zap.Error(err))
	}
	a.sched.Close()

	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.logger.Warn("closing remote", zap.Error(err))
		}
	}
	err := a.store.Detach()
	_ = a.logger.Sync()
	return err
}

// withApp opens the app, runs fn and closes the app. Commands that change
// documents pass mutate so pending changes are pushed on exit.
func withApp(cmd *cobra.Command, mutate bool, fn func(a *app) error) (err error) {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(cmd.Context()); err == nil && cerr != nil {
			err = fmt.Errorf("close local store: %w", cerr)
		}
	}()

	if err := fn(a); err != nil {
		return err
	}
	if mutate {
		a.markChanged()
	}
	return nil
}
