package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/config"
	"github.com/idilsaglam/weavetodo/internal/logger"
	"github.com/idilsaglam/weavetodo/internal/recordcache"
	"github.com/idilsaglam/weavetodo/internal/session"
	"github.com/idilsaglam/weavetodo/internal/synchronizer"
	"github.com/idilsaglam/weavetodo/internal/tracker"
	"github.com/idilsaglam/weavetodo/internal/ui"
	"github.com/idilsaglam/weavetodo/internal/wallet"
)

// app carries what one command invocation opened, so Run can release it.
type app struct {
	cfg   config.Config
	cache *recordcache.Cache
	sess  *session.Session
}

func (a *app) setup(cmd *cobra.Command) error {
	v, err := config.New()
	if err != nil {
		return err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	file, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return fmt.Errorf("%s flag: %w", FlagConfig, err)
	}
	cfg, err := config.Load(v, file)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg.Log.File, cfg.Log.Level); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ui.SetTheme(cfg.UI.Theme); err != nil {
		return &usageError{msg: err.Error()}
	}
	a.cfg = cfg
	logger.Logger.Debug("command", zap.String("path", cmd.CommandPath()), zap.String("gateway", cfg.Gateway.URL))
	return nil
}

func (a *app) teardown() {
	if a.sess != nil {
		a.sess.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Logger.Warn("close record cache", zap.Error(err))
		}
	}
	logger.Sync()
}

func (a *app) gateway() (*arweave.Client, error) {
	return arweave.NewClient(a.cfg.Gateway.URL, arweave.WithTimeout(a.cfg.Gateway.Timeout))
}

func (a *app) wallet() (*wallet.Wallet, error) {
	return wallet.Load(a.cfg.Wallet.Path)
}

// recordCache opens the cache lazily. A cache held by another process is
// skipped rather than failing the command.
func (a *app) recordCache() *recordcache.Cache {
	if a.cache != nil || a.cfg.Cache.Dir == "" {
		return a.cache
	}
	c, err := recordcache.Open(a.cfg.Cache.Dir)
	if err != nil {
		logger.Logger.Warn("record cache unavailable", zap.String("dir", a.cfg.Cache.Dir), zap.Error(err))
		return nil
	}
	a.cache = c
	return c
}

func (a *app) synchronizer(gw synchronizer.Gateway) *synchronizer.Synchronizer {
	opts := []synchronizer.Option{
		synchronizer.WithAppTag(a.cfg.App.Tag),
		synchronizer.WithConcurrency(a.cfg.Sync.Concurrency),
	}
	if c := a.recordCache(); c != nil {
		opts = append(opts, synchronizer.WithCache(c))
	}
	return synchronizer.New(gw, opts...)
}

func (a *app) trackerOptions() []tracker.Option {
	return []tracker.Option{
		tracker.WithInterval(a.cfg.Tracker.Interval),
		tracker.WithThreshold(a.cfg.Tracker.Confirmations),
	}
}

// openSession loads the newest list for the configured wallet.
func (a *app) openSession(ctx context.Context, opts ...session.Option) (*session.Session, error) {
	w, err := a.wallet()
	if err != nil {
		return nil, err
	}
	gw, err := a.gateway()
	if err != nil {
		return nil, err
	}
	opts = append([]session.Option{session.WithTracker(a.trackerOptions()...)}, opts...)
	sess := session.New(w, a.synchronizer(gw), gw, opts...)
	a.sess = sess
	if err := sess.Open(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}
