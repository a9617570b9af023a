package newsdex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/newsdex/internal/config"
	"github.com/kailas-cloud/newsdex/internal/db"
	dbRedis "github.com/kailas-cloud/newsdex/internal/db/redis"
	"github.com/kailas-cloud/newsdex/internal/db/resilient"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	accountrepo "github.com/kailas-cloud/newsdex/internal/repository/account"
	itemrepo "github.com/kailas-cloud/newsdex/internal/repository/item"
	sectionfilterrepo "github.com/kailas-cloud/newsdex/internal/repository/sectionfilter"
	healthuc "github.com/kailas-cloud/newsdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/newsdex/internal/usecase/search"
	sectionfilteruc "github.com/kailas-cloud/newsdex/internal/usecase/sectionfilter"
)

const defaultReadinessTimeout = 10 * time.Second

// searchUseCase is the internal interface for searches, replaced in tests.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (result.Result, error)
	SearchAllVersions(ctx context.Context, req request.Request) (result.Result, error)
	Compile(ctx context.Context, req request.Request) (*query.Request, *searchuc.Context, error)
}

// Client is the newsdex SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a newsdex Client and connects to the database.
// The provided context is used for the initial readiness check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: domain.DefaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("newsdex: database address required (use WithRedis)")
	}

	settings, err := searchSettings(cfg.searchConfig)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	redisStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("newsdex: create redis store: %w", err)
	}

	var store db.Store = redisStore
	if cfg.resilient {
		store = resilient.Wrap(redisStore, resilient.Config{}, cfg.logger)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("newsdex: database not ready: %w", err)
	}

	client, err := wireClient(ctx, store, cfg, settings, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return client, nil
}

// searchSettings decodes the search YAML, or returns defaults when empty.
func searchSettings(data []byte) (searchuc.Config, error) {
	if len(data) == 0 {
		return searchuc.DefaultConfig(), nil
	}
	sc, err := config.ParseSearch(data)
	if err != nil {
		return searchuc.Config{}, fmt.Errorf("newsdex: %w", err)
	}
	return sc.Settings(), nil
}

func wireClient(
	ctx context.Context, store db.Store, cfg *clientConfig, settings searchuc.Config, obs *observer,
) (*Client, error) {
	indexName := cfg.indexName
	if indexName == "" {
		indexName = strings.TrimSuffix(cfg.keyPrefix, ":") + ":items"
	}

	itemRepo, err := itemrepo.New(store, indexName, cfg.keyPrefix+"item:", nil)
	if err != nil {
		return nil, fmt.Errorf("newsdex: items index: %w", err)
	}
	accountRepo := accountrepo.New(store, cfg.keyPrefix)
	sectionFilterRepo := sectionfilterrepo.New(store, cfg.keyPrefix)

	if cfg.createIndex {
		for _, ensure := range []func(context.Context) error{
			itemRepo.EnsureIndex, accountRepo.EnsureIndex, sectionFilterRepo.EnsureIndex,
		} {
			if err := ensure(ctx); err != nil {
				return nil, fmt.Errorf("newsdex: create index: %w", err)
			}
		}
	}

	sections := sectionfilteruc.New(sectionFilterRepo, settings.AnalyzeWildcard)

	return &Client{
		store:     store,
		searchSvc: searchuc.New(itemRepo, accountRepo, sections, settings),
		healthSvc: healthuc.New(store, itemRepo),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search runs a search and returns one page of latest revisions.
func (c *Client) Search(ctx context.Context, req SearchRequest) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	dr, err := req.toDomain()
	if err != nil {
		return Result{}, err
	}
	out, err := c.searchSvc.Search(ctx, dr)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}
	return resultFromDomain(&out), nil
}

// SearchAllVersions matches every revision and returns the latest revision
// of each matching story. Result.MatchedIDs lists the matched revisions.
func (c *Client) SearchAllVersions(ctx context.Context, req SearchRequest) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_all_versions", start, err) }()

	dr, err := req.toDomain()
	if err != nil {
		return Result{}, err
	}
	out, err := c.searchSvc.SearchAllVersions(ctx, dr)
	if err != nil {
		return Result{}, fmt.Errorf("search all versions: %w", err)
	}
	return resultFromDomain(&out), nil
}

// Compile returns the index request a search would run, as JSON.
func (c *Client) Compile(ctx context.Context, req SearchRequest) (raw json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("compile", start, err) }()

	dr, err := req.toDomain()
	if err != nil {
		return nil, err
	}
	compiled, _, err := c.searchSvc.Compile(ctx, dr)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	raw, err = json.Marshal(compiled)
	if err != nil {
		return nil, fmt.Errorf("marshal compiled request: %w", err)
	}
	return raw, nil
}
