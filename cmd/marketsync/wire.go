package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/marketsync/internal/adapters/driven/commerce/postgres"
	"github.com/custodia-labs/marketsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/marketsync/internal/adapters/driven/notify"
	"github.com/custodia-labs/marketsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marketsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/marketsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/services"
	"github.com/custodia-labs/marketsync/internal/logger"
	"github.com/custodia-labs/marketsync/internal/marketplace"
)

// bootstrap wires the adapters behind the CLI.
//
// Settings are always available. The sync commands and the scheduler are
// only wired once the marketplace connection is configured.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}
	closers := []func() error{store.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	svc := &cli.Services{
		SettingsService: settingsService,
		Events:          store.EventStore(),
		ConfigWatcher:   configStore,
		Close:           closeAll,
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("load settings: %w", err), closeAll())
	}
	if err := settingsService.Validate(); err != nil {
		logger.Debug("sync disabled: %v", err)
		return svc, nil
	}

	client, err := marketplace.NewClient(ctx, marketplace.Config{
		BaseURL:           settings.Marketplace.BaseURL,
		ClientID:          settings.Marketplace.ClientID,
		ClientSecret:      settings.Marketplace.ClientSecret,
		TokenURL:          settings.Marketplace.TokenURL,
		APIKey:            settings.Marketplace.APIKey,
		Timeout:           settings.Marketplace.Timeout,
		RequestsPerSecond: settings.Marketplace.RequestsPerSecond,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("marketplace client: %w", err), closeAll())
	}
	gateway := marketplace.NewGateway(client, settings.Marketplace.Currency)

	local, closeLocal, err := openLocalStore(ctx, settings.Commerce)
	if err != nil {
		return nil, errors.Join(err, closeAll())
	}
	closers = append(closers, closeLocal)

	sink := notify.NewMulti(notify.NewLogSink(nil), store.EventStore())

	cycle := services.NewCycleService(
		gateway,
		store.CatalogStore(),
		local,
		store.LeaseStore(),
		store.FeedStore(),
		sink,
		settingsService,
	)
	svc.CatalogSync = cycle
	svc.Scheduler = services.NewScheduler(
		settingsService.GetSchedulerConfig(),
		store.SchedulerStore(),
		cycle,
	)
	return svc, nil
}

// openLocalStore connects to the commerce database. Without a DSN an empty
// store is used, so cycles still refresh the cache and report every SKU as
// unmatched.
func openLocalStore(ctx context.Context, cfg domain.CommerceSettings) (driven.LocalStore, func() error, error) {
	if cfg.DSN == "" {
		logger.Warn("commerce.dsn not set: no local products to reconcile")
		return memory.NewLocalStore(), func() error { return nil }, nil
	}

	pg, err := postgres.New(ctx, cfg.DSN, cfg.TablePrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("open commerce store: %w", err)
	}
	return pg, func() error {
		pg.Close()
		return nil
	}, nil
}
