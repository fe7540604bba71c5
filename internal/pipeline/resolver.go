package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/firewatch/internal/cache"
	"github.com/ppiankov/firewatch/internal/cluster"
	"github.com/ppiankov/firewatch/internal/logging"
	"github.com/ppiankov/firewatch/internal/metrics"
	"github.com/ppiankov/firewatch/internal/model"
	"github.com/ppiankov/firewatch/internal/score"
	"github.com/ppiankov/firewatch/internal/source"
	"github.com/ppiankov/firewatch/internal/validate"
)

// Deps are the collaborators of a Resolver
type Deps struct {
	Live     source.Source         // Tier 1, required
	Cache    cache.Cache           // Tier 2, nil disables caching
	Backup   []model.FireDetection // Tier 3, must be non-empty
	Logger   *zap.Logger
	Metrics  *metrics.Recorder
	Clock    func() time.Time
	Location *time.Location // Zone for the recovery status clock, default time.Local
}

// Resolver produces fire feeds from the first tier that can serve one
type Resolver struct {
	cfg       *model.Config
	live      source.Source
	cache     cache.Cache
	backup    *source.BackupSource
	validator *validate.Validator
	scorer    *score.Scorer
	clusterer *cluster.Clusterer
	logger    *zap.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
	loc       *time.Location
	group     singleflight.Group
}

// NewResolver validates cfg and wires the tiers. A missing backup dataset
// is fatal here so that resolution itself can never run out of data.
func NewResolver(cfg *model.Config, deps Deps) (*Resolver, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Live == nil {
		return nil, fmt.Errorf("live source is required")
	}
	backup, err := source.NewBackupSource(source.Clone(deps.Backup))
	if err != nil {
		return nil, err
	}

	logger := logging.OrNop(deps.Logger)
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	c := deps.Cache
	if !cfg.Cache.Enabled {
		c = nil
	}

	return &Resolver{
		cfg:       cfg,
		live:      deps.Live,
		cache:     c,
		backup:    backup,
		validator: validate.NewValidator(logger),
		scorer:    score.NewScorer(cfg.Attribution),
		clusterer: cluster.NewClusterer(cfg.Clustering),
		logger:    logger,
		metrics:   deps.Metrics,
		now:       now,
		loc:       loc,
	}, nil
}

// Config returns the resolver configuration
func (r *Resolver) Config() *model.Config {
	return r.cfg
}

// Resolve builds a feed for the configured receptor. It never fails;
// degraded tiers are reported through the feed metadata.
func (r *Resolver) Resolve(ctx context.Context, forceFail bool) *model.FireFeed {
	return r.ResolveFor(ctx, r.cfg.Receptor, forceFail)
}

// ResolveFor builds a feed for an arbitrary receptor. Acquisition does not
// depend on the receptor, so concurrent calls share one fetch.
func (r *Resolver) ResolveFor(ctx context.Context, receptor model.Position, forceFail bool) *model.FireFeed {
	started := r.now()

	key := "acquire"
	if forceFail {
		key = "acquire:forced"
	}
	v, _, _ := r.group.Do(key, func() (any, error) {
		return r.acquire(ctx, forceFail), nil
	})
	acq := v.(acquisition)

	feed := r.buildFeed(acq, receptor)

	r.metrics.ObserveResolution(string(acq.tier), r.now().Sub(started), len(feed.AllFires), feed.Attribution.StubblePercentage, feed.Metadata.Timestamp)
	r.logger.Info("feed resolved",
		zap.String("tier", string(acq.tier)),
		zap.String("status", acq.status),
		zap.Int("fires", len(feed.AllFires)),
		zap.Int("clusters", len(feed.Clusters)),
		zap.Int("stubble_pct", feed.Attribution.StubblePercentage),
		zap.Stringer("receptor", receptor),
	)

	return feed
}

// Refresh fetches the live tier and rewrites the cache, bypassing the
// freshness gate. The live error is returned so callers can report it.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err, _ := r.group.Do("refresh", func() (any, error) {
		fires, err := r.fetchLive(ctx, false)
		if err != nil {
			return nil, err
		}
		r.writeCache(fires)
		return nil, nil
	})
	return err
}

type state int

const (
	stateStart state = iota
	stateCachedFresh
	stateAttemptLive
	stateRecovery
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateCachedFresh:
		return "cached-fresh"
	case stateAttemptLive:
		return "attempt-live"
	case stateRecovery:
		return "recovery"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// acquisition is the raw base set and its provenance
type acquisition struct {
	fires    []model.FireDetection
	tier     model.Tier
	status   string
	cachedAt *time.Time
}

type cachedEntry struct {
	fires []model.FireDetection
	at    time.Time
}

func (r *Resolver) acquire(ctx context.Context, forceFail bool) acquisition {
	var (
		acq   acquisition
		entry *cachedEntry
		st    = stateStart
	)

	for st != stateDone {
		next := stateDone

		switch st {
		case stateStart:
			entry = r.readCache()
			next = stateAttemptLive
			if entry != nil && !forceFail && r.fresh(entry.at) {
				next = stateCachedFresh
			}

		case stateCachedFresh:
			age := max(r.now().Sub(entry.at), 0)
			acq = acquisition{
				fires:    entry.fires,
				tier:     model.TierCached,
				status:   fmt.Sprintf("Cached (Fresh: %dm ago)", int(math.Round(age.Minutes()))),
				cachedAt: &entry.at,
			}

		case stateAttemptLive:
			fires, err := r.fetchLive(ctx, forceFail)
			if err != nil {
				r.logger.Warn("satellite feed recovery mode", zap.String("source", r.live.Name()), zap.Error(err))
				next = stateRecovery
				break
			}
			r.writeCache(fires)
			acq = acquisition{fires: fires, tier: model.TierLive, status: model.StatusLive}

		case stateRecovery:
			if entry = r.readCache(); entry != nil {
				acq = acquisition{
					fires:    entry.fires,
					tier:     model.TierRecovery,
					status:   "Cached (Recovery: " + entry.at.In(r.loc).Format("3:04:05 PM") + ")",
					cachedAt: &entry.at,
				}
				break
			}
			// The backup source cannot fail
			fires, _ := r.backup.Fetch(ctx)
			acq = acquisition{fires: fires, tier: model.TierBackup, status: model.StatusBackup}
		}

		r.logger.Debug("resolver transition", zap.Stringer("from", st), zap.Stringer("to", next))
		st = next
	}

	return acq
}

// fresh reports whether a cache timestamp is inside the freshness window.
// Timestamps in the future count as age zero.
func (r *Resolver) fresh(at time.Time) bool {
	return r.now().Sub(at) < r.cfg.Cache.FreshTTL
}

func (r *Resolver) fetchLive(ctx context.Context, forceFail bool) ([]model.FireDetection, error) {
	if forceFail {
		r.metrics.LiveFailure("forced")
		return nil, source.ErrForcedFailure
	}

	// The fetch may be shared by several callers, so one caller's
	// cancellation must not abort it; the live timeout still bounds it.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Live.Timeout)
	defer cancel()

	fires, err := r.live.Fetch(fetchCtx)
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(err, context.Canceled):
			reason = "canceled"
		}
		r.metrics.LiveFailure(reason)
		return nil, fmt.Errorf("live fetch from %s: %w", r.live.Name(), err)
	}
	return fires, nil
}

// readCache returns the usable cache entry, or nil. Malformed envelopes
// are removed so the next live success can replace them.
func (r *Resolver) readCache() *cachedEntry {
	entry, err := r.loadCache()
	switch {
	case err == nil:
		return entry
	case errors.Is(err, ErrCacheMiss):
		return nil
	}

	key := r.cfg.Cache.Key
	r.logger.Warn("discarding malformed cache entry", zap.String("key", key), zap.Error(err))
	r.metrics.CacheCorrupt()
	if delErr := r.cache.Delete(key); delErr != nil {
		r.logger.Warn("delete malformed cache entry", zap.String("key", key), zap.Error(delErr))
	}
	return nil
}

// loadCache reads and decodes the envelope. A disabled cache or a missing
// key is ErrCacheMiss; anything else is a decode error.
func (r *Resolver) loadCache() (*cachedEntry, error) {
	if r.cache == nil {
		return nil, ErrCacheMiss
	}

	b, found := r.cache.Get(r.cfg.Cache.Key)
	if !found {
		return nil, ErrCacheMiss
	}

	fires, at, err := DecodeEnvelope(b)
	if err != nil {
		return nil, err
	}
	return &cachedEntry{fires: fires, at: at}, nil
}

func (r *Resolver) writeCache(fires []model.FireDetection) {
	if r.cache == nil {
		return
	}

	b, err := EncodeEnvelope(fires, r.now())
	if err == nil {
		err = r.cache.Set(r.cfg.Cache.Key, b, r.cfg.Cache.Retention)
	}
	r.metrics.CacheWrite(err)
	if err != nil {
		r.logger.Warn("cache write failed", zap.String("key", r.cfg.Cache.Key), zap.Error(err))
	}
}

// buildFeed runs the common post-processing over a base set
func (r *Resolver) buildFeed(acq acquisition, receptor model.Position) *model.FireFeed {
	fires, _ := r.validator.Validate(source.Clone(acq.fires))

	slices.SortStableFunc(fires, func(a, b model.FireDetection) int {
		return cmp.Compare(b.FRPOr(0), a.FRPOr(0))
	})
	if len(fires) > r.cfg.Feed.MaxFires {
		fires = fires[:r.cfg.Feed.MaxFires]
	}

	scored, totalImpact := r.scorer.ScoreFires(fires, receptor)

	impactful := slices.Clone(scored)
	slices.SortStableFunc(impactful, func(a, b model.FireDetection) int {
		return cmp.Compare(b.ImpactScore, a.ImpactScore)
	})
	if len(impactful) > r.cfg.Feed.MaxImpactful {
		impactful = impactful[:r.cfg.Feed.MaxImpactful]
	}

	return &model.FireFeed{
		Metadata: model.FeedMetadata{
			ID:          uuid.NewString(),
			Timestamp:   r.now().UTC(),
			Source:      r.cfg.Feed.Source,
			Status:      acq.status,
			Tier:        acq.tier,
			IsLive:      acq.tier == model.TierLive,
			IsCached:    acq.tier == model.TierCached || acq.tier == model.TierRecovery,
			IsSimulated: acq.tier == model.TierBackup,
			Receptor:    receptor,
			CachedAt:    acq.cachedAt,
		},
		AllFires:       scored,
		ImpactfulFires: impactful,
		Clusters:       r.clusterer.Identify(scored),
		Attribution:    r.scorer.Attribution(totalImpact, len(scored)),
	}
}
