package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pricewatch-service/config"
	"pricewatch-service/internal/broker"
	"pricewatch-service/internal/match"
	"pricewatch-service/internal/models"
	"pricewatch-service/internal/redisclient"
	"pricewatch-service/internal/store"
	"pricewatch-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunResult summarizes one pipeline run for the API and the logs.
type RunResult struct {
	Day          string        `json:"day"`
	Processed    int           `json:"processed"`
	Rejected     int           `json:"rejected"`
	Matched      int           `json:"matched"`
	Created      int           `json:"created"`
	Overridden   int           `json:"overridden"`
	Ambiguous    int           `json:"ambiguous"`
	PriceChanges int           `json:"price_changes"`
	StockChanges int           `json:"stock_changes"`
	NewProducts  int           `json:"new_products"`
	Pruned       int64         `json:"pruned,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// Engine runs the daily batch pipeline: validate, resolve, commit, detect,
// recommend, publish. It holds no state between runs beyond what the store
// returns; within a run, resolution is serialized against one in-memory
// catalog index.
type Engine struct {
	store       *store.Store
	redis       *redisclient.Client
	publisher   *broker.EventPublisher
	scorer      *match.Scorer
	resolver    *Resolver
	detector    *Detector
	recommender *Recommender
	matching    *config.Matching
	roles       map[string]string
	runCfg      config.RunConfig
	logger      *zap.Logger

	mu sync.Mutex // one run at a time inside this process
}

// NewEngine wires the pipeline components.
func NewEngine(
	st *store.Store,
	redis *redisclient.Client,
	publisher *broker.EventPublisher,
	matching *config.Matching,
	runCfg config.RunConfig,
) *Engine {
	scorer := match.NewScorer(matching)
	var cache ScoreCache
	if redis != nil {
		cache = redis
	}
	return &Engine{
		store:       st,
		redis:       redis,
		publisher:   publisher,
		scorer:      scorer,
		resolver:    NewResolver(scorer, matching, cache),
		detector:    NewDetector(st, redis, matching),
		recommender: NewRecommender(matching),
		matching:    matching,
		roles:       matching.SiteRoles(),
		runCfg:      runCfg,
		logger:      util.GetLogger(),
	}
}

// ProcessRun executes one full pipeline run over the given listings.
// Individual bad records are rejected and logged, never fatal; only a
// failed transactional commit aborts the run.
func (e *Engine) ProcessRun(ctx context.Context, day time.Time, listings []models.RawListing) (*RunResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := util.StartSpan(ctx, "Engine.ProcessRun")
	defer span.End()

	start := time.Now()
	dayKey := day.Format("2006-01-02")
	result := &RunResult{Day: dayKey}

	locked, err := e.redis.AcquireRunLock(ctx, dayKey, time.Duration(e.runCfg.LockTTLMin)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("run for %s already in progress", dayKey)
	}
	defer func() {
		if err := e.redis.ReleaseRunLock(context.Background(), dayKey); err != nil {
			e.logger.Warn("Failed to release run lock", zap.Error(err))
		}
	}()

	e.logger.Info("Run started",
		zap.String("day", dayKey),
		zap.Int("listings", len(listings)))

	// one catalog read per run; everything resolves against this index
	products, err := e.store.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	counts, err := e.store.SnapshotCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot counts: %w", err)
	}
	overrides, err := e.store.GetOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	idx := NewCatalogIndex(products, counts)

	assignments := make([]Assignment, 0, len(listings))
	for _, raw := range listings {
		listing, reason, ok := e.validateListing(raw, day)
		if !ok {
			result.Rejected++
			util.ListingsRejectedTotal.WithLabelValues(reason).Inc()
			e.logger.Warn("Listing rejected",
				zap.String("site", raw.Site),
				zap.String("name", raw.Name),
				zap.String("reason", reason))
			continue
		}

		a := e.resolver.Resolve(ctx, listing, idx, overrides)
		result.Processed++
		switch {
		case a.Overridden:
			result.Overridden++
			util.MatchOutcomesTotal.WithLabelValues("overridden").Inc()
		case a.Created:
			result.Created++
			util.MatchOutcomesTotal.WithLabelValues("created").Inc()
			util.ProductsCreatedTotal.Inc()
		case a.Ambiguous:
			result.Ambiguous++
			result.Matched++
			util.MatchOutcomesTotal.WithLabelValues("ambiguous").Inc()
		default:
			result.Matched++
			util.MatchOutcomesTotal.WithLabelValues("matched").Inc()
		}
		assignments = append(assignments, a)
	}

	SortAssignments(assignments)

	items := make([]store.RunItem, len(assignments))
	snapshots := make([]*models.PriceSnapshot, len(assignments))
	for i, a := range assignments {
		snapshots[i] = &models.PriceSnapshot{
			SiteName:     a.Listing.Site,
			OriginalName: a.Listing.Name,
			Price:        a.Listing.Price,
			Currency:     a.Listing.Currency,
			StockStatus:  a.Listing.StockStatus,
			URL:          a.Listing.URL,
			ScrapedAt:    a.Listing.ScrapedAt,
		}
		items[i] = store.RunItem{Product: a.Product, Snapshot: snapshots[i]}
	}
	if err := e.store.CommitRun(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	for i := range assignments {
		a := &assignments[i]
		det, err := e.detector.Detect(ctx, a, snapshots[i])
		if err != nil {
			// per-item detection failures degrade to "no event", not a crash
			e.logger.Error("Detection failed",
				zap.Int64("product_id", a.Product.ID),
				zap.String("site", a.Listing.Site),
				zap.Error(err))
			continue
		}
		if det.PriceChange != nil {
			result.PriceChanges++
			e.publishPriceChange(ctx, a, det.PriceChange)
		}
		if det.StockChange != nil {
			result.StockChanges++
			e.publishStockChange(ctx, a, det.StockChange)
		}
		if det.NewProduct {
			result.NewProducts++
			e.publishNewProduct(ctx, a, snapshots[i])
		}
	}

	if e.runCfg.RetentionDays > 0 {
		cutoff := day.AddDate(0, 0, -e.runCfg.RetentionDays)
		pruned, err := e.store.PruneBefore(ctx, cutoff)
		if err != nil {
			e.logger.Warn("Retention pruning failed", zap.Error(err))
		} else if pruned > 0 {
			result.Pruned = pruned
			e.logger.Info("Retention pruning done", zap.Int64("rows", pruned))
		}
	}

	result.Duration = time.Since(start)
	util.RunDuration.Observe(result.Duration.Seconds())
	e.logger.Info("Run finished",
		zap.String("day", dayKey),
		zap.Int("processed", result.Processed),
		zap.Int("rejected", result.Rejected),
		zap.Int("matched", result.Matched),
		zap.Int("created", result.Created),
		zap.Int("price_changes", result.PriceChanges),
		zap.Int("stock_changes", result.StockChanges),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// validateListing normalizes a raw record into runnable shape or rejects
// it with a reason. A missing or non-positive price is never guessed.
func (e *Engine) validateListing(raw models.RawListing, day time.Time) (models.RawListing, string, bool) {
	if raw.Site == "" {
		return raw, "missing_site", false
	}
	if raw.Name == "" {
		return raw, "empty_name", false
	}
	if !raw.Price.IsPositive() && raw.PriceText != "" {
		if parsed, ok := match.CleanPrice(raw.PriceText); ok {
			raw.Price = parsed
		}
	}
	if !raw.Price.IsPositive() {
		return raw, "non_positive_price", false
	}
	if raw.Currency == "" {
		raw.Currency = e.matching.DefaultCurrency
	}
	raw.StockStatus = e.scorer.Normalizer().StockStatus(raw.StockStatus)
	if raw.ScrapedAt.IsZero() {
		raw.ScrapedAt = day
	}
	util.ListingsIngestedTotal.WithLabelValues(raw.Site).Inc()
	return raw, "", true
}

func (e *Engine) siteRole(site string) string {
	if role, ok := e.roles[site]; ok {
		return role
	}
	return models.SiteRoleCompetitor
}

func (e *Engine) publishPriceChange(ctx context.Context, a *Assignment, pc *models.PriceChange) {
	role := e.siteRole(pc.SiteName)
	rec := e.recommender.Price(role, pc.ChangePercent)

	event := &models.PriceChangeEvent{
		BaseEvent:      newBaseEvent(models.EventTypePriceChange),
		ChangeID:       pc.ID,
		ProductID:      pc.ProductID,
		ProductName:    a.Product.NormalizedName,
		SiteName:       pc.SiteName,
		SiteRole:       role,
		OldPrice:       pc.OldPrice,
		NewPrice:       pc.NewPrice,
		ChangePercent:  pc.ChangePercent,
		Currency:       a.Listing.Currency,
		Severity:       rec.Severity,
		Recommendation: rec.Message,
	}
	if err := e.publisher.PublishPriceChange(ctx, event); err != nil {
		e.logger.Error("Failed to publish price change event", zap.Error(err))
	}
}

func (e *Engine) publishStockChange(ctx context.Context, a *Assignment, sc *models.StockChange) {
	role := e.siteRole(sc.SiteName)
	rec := e.recommender.Stock(role, sc.ChangeType, e.marketView(ctx, sc.ProductID))

	event := &models.StockChangeEvent{
		BaseEvent:      newBaseEvent(models.EventTypeStockChange),
		ChangeID:       sc.ID,
		ProductID:      sc.ProductID,
		ProductName:    a.Product.NormalizedName,
		SiteName:       sc.SiteName,
		SiteRole:       role,
		PreviousStatus: sc.PreviousStatus,
		NewStatus:      sc.NewStatus,
		ChangeType:     sc.ChangeType,
		Severity:       rec.Severity,
		Recommendation: rec.Message,
	}
	if err := e.publisher.PublishStockChange(ctx, event); err != nil {
		e.logger.Error("Failed to publish stock change event", zap.Error(err))
	}
}

func (e *Engine) publishNewProduct(ctx context.Context, a *Assignment, snap *models.PriceSnapshot) {
	event := &models.NewProductEvent{
		BaseEvent:   newBaseEvent(models.EventTypeNewProduct),
		ProductID:   a.Product.ID,
		ProductName: a.Product.NormalizedName,
		Brand:       a.Product.Brand,
		Category:    a.Product.Category,
		SiteName:    snap.SiteName,
		Price:       snap.Price,
		StockStatus: snap.StockStatus,
	}
	if err := e.publisher.PublishNewProduct(ctx, event); err != nil {
		e.logger.Error("Failed to publish new product event", zap.Error(err))
	}
}

// marketView computes the cross-site stock picture for the recommender's
// own-vs-competitor rules. Errors degrade to an empty view.
func (e *Engine) marketView(ctx context.Context, productID int64) MarketView {
	states, err := e.store.LatestSiteStates(ctx, productID)
	if err != nil {
		e.logger.Warn("Failed to load site states", zap.Int64("product_id", productID), zap.Error(err))
		return MarketView{}
	}
	var view MarketView
	for _, s := range states {
		available := s.StockStatus == models.StockInStock || s.StockStatus == models.StockLimited
		if !available {
			continue
		}
		if e.siteRole(s.SiteName) == models.SiteRoleOwn {
			view.OwnHasStock = true
		} else {
			view.CompetitorHasStock = true
		}
	}
	return view
}

// Summary builds the daily report for the API.
func (e *Engine) Summary(ctx context.Context, day string) (*models.DailySummary, error) {
	snapshots, err := e.store.CountSnapshotsOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to count snapshots: %w", err)
	}
	drops, rises, stockEvents, err := e.store.ChangeCountsOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to count changes: %w", err)
	}
	newProducts, err := e.store.CountProductsCreatedOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to count new products: %w", err)
	}
	movers, err := e.store.TopMovers(ctx, day, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to load top movers: %w", err)
	}
	return &models.DailySummary{
		Day:         day,
		Snapshots:   snapshots,
		PriceDrops:  drops,
		PriceRises:  rises,
		StockEvents: stockEvents,
		NewProducts: newProducts,
		TopMovers:   movers,
	}, nil
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
