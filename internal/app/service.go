// Package service composes the response cache, the upstream client and the
// streak engine into the operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/cfpulse/internal/adapters/cache"
	"github.com/okian/cfpulse/internal/adapters/codeforces"
	"github.com/okian/cfpulse/internal/config"
	"github.com/okian/cfpulse/internal/domain/model"
	"github.com/okian/cfpulse/internal/domain/streak"
	"github.com/okian/cfpulse/internal/domain/types"
	"github.com/okian/cfpulse/pkg/logger"
	"github.com/okian/cfpulse/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Service implements the API dependencies for cfpulse.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  cache.Store
	client *codeforces.Client

	// Configuration
	baseURL          string
	upstreamTimeout  time.Duration
	cacheTTL         time.Duration
	cacheBackend     string
	cacheMaxEntries  int
	redisAddr        string
	redisPassword    string
	redisDB          int
	redisKeyPrefix   string
	submissionsCount int
	maxBatchHandles  int
	batchConcurrency int
	now              func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		baseURL:          codeforces.DefaultBaseURL,
		upstreamTimeout:  codeforces.DefaultTimeout,
		cacheTTL:         cache.DefaultTTL,
		cacheBackend:     config.CacheBackendMemory,
		redisKeyPrefix:   cache.DefaultKeyPrefix,
		submissionsCount: codeforces.DefaultStatusCount,
		maxBatchHandles:  20,
		batchConcurrency: 4,
		now:              time.Now,
		logger:           nil, // replaced on Start
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the configured cache store and builds the upstream client.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting cfpulse service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	s.client = codeforces.New(
		codeforces.WithBaseURL(s.baseURL),
		codeforces.WithTimeout(s.upstreamTimeout),
		codeforces.WithStore(s.store),
		codeforces.WithLogger(s.logger.Named("codeforces")),
	)

	s.started = true
	s.logger.Info(ctx, "cfpulse service started",
		logger.String("upstream", s.baseURL),
		logger.String("cacheBackend", s.cacheBackend),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Int("cacheMaxEntries", s.cacheMaxEntries),
	)

	return nil
}

func (s *Service) openStore(ctx context.Context) (cache.Store, error) {
	switch s.cacheBackend {
	case config.CacheBackendRedis:
		store, err := cache.DialRedis(ctx, s.redisAddr, s.redisPassword, s.redisDB,
			cache.WithKeyPrefix(s.redisKeyPrefix),
			cache.WithRedisTTL(s.cacheTTL),
		)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		s.logger.Info(ctx, "using redis cache", logger.String("addr", s.redisAddr))
		return store, nil
	case config.CacheBackendMemory, "":
		s.logger.Info(ctx, "using in-memory cache")
		return cache.NewMemory(
			cache.WithTTL(s.cacheTTL),
			cache.WithMaxEntries(s.cacheMaxEntries),
		), nil
	default:
		return nil, fmt.Errorf("%w %q", config.ErrUnknownBackend, s.cacheBackend)
	}
}

// Stop releases the cache store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping cfpulse service...")

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing cache store", logger.Error(err))
		}
		s.store = nil
	}
	s.client = nil

	s.started = false
	s.logger.Info(context.Background(), "cfpulse service stopped")
}

func (s *Service) upstream() (*codeforces.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.client, nil
}

// FetchSubmissions returns the submission history of handle.
func (s *Service) FetchSubmissions(ctx context.Context, handle string) ([]model.Submission, error) {
	c, err := s.upstream()
	if err != nil {
		return nil, err
	}
	return c.UserStatus(ctx, handle, codeforces.DefaultStatusFrom, s.submissionsCount)
}

// ComputeStreak fetches the history of handle and derives its streaks and
// heatmap as of now.
func (s *Service) ComputeStreak(ctx context.Context, handle string) (streak.Result, error) {
	subs, err := s.FetchSubmissions(ctx, handle)
	if err != nil {
		return streak.Result{}, err
	}

	res := streak.Compute(subs, s.now())

	metrics.RecordStreakComputed(len(subs))
	metrics.RecordRecordsSkipped(res.Skipped)
	if res.Skipped > 0 {
		s.logger.Warn(ctx, "skipped submissions with invalid timestamps",
			logger.String("handle", handle),
			logger.Int("skipped", res.Skipped),
		)
	}
	s.logger.Debug(ctx, "streak computed",
		logger.String("handle", handle),
		logger.Int("submissions", len(subs)),
		logger.Int("current", res.CurrentStreak),
		logger.Int("max", res.MaxStreak),
	)
	return res, nil
}

// CompareStreaks computes streaks for several handles concurrently. A failing
// handle yields a row with its error instead of failing the whole batch.
// Rows are ordered by current streak, then max streak, then handle.
func (s *Service) CompareStreaks(ctx context.Context, handles []string) ([]types.HandleStreak, error) {
	handles = normalizeHandles(handles)
	switch {
	case len(handles) == 0:
		return nil, ErrNoHandles
	case len(handles) > s.maxBatchHandles:
		return nil, fmt.Errorf("%w: %d given, at most %d", ErrTooManyHandles, len(handles), s.maxBatchHandles)
	}
	if _, err := s.upstream(); err != nil {
		return nil, err
	}

	rows := make([]types.HandleStreak, len(handles))
	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, h := range handles {
		g.Go(func() error {
			row := types.HandleStreak{Handle: h}
			res, err := s.ComputeStreak(ctx, h)
			if err != nil {
				row.Error = err.Error()
			} else {
				row.CurrentStreak = res.CurrentStreak
				row.MaxStreak = res.MaxStreak
				row.ActiveDays = len(res.Heatmap)
				row.Solved = res.Heatmap.Total()
			}
			rows[i] = row
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(rows, func(a, b types.HandleStreak) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	rank := 0
	for i := range rows {
		if rows[i].OK() {
			rank++
			rows[i].Rank = rank
		}
	}
	return rows, nil
}

// normalizeHandles trims, drops blanks and removes case-insensitive
// duplicates, keeping the first spelling.
func normalizeHandles(handles []string) []string {
	seen := make(map[string]struct{}, len(handles))
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		k := strings.ToLower(h)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, h)
	}
	return out
}

// UserInfo returns the profile of handle.
func (s *Service) UserInfo(ctx context.Context, handle string) (json.RawMessage, error) {
	c, err := s.upstream()
	if err != nil {
		return nil, err
	}
	return c.UserInfo(ctx, handle)
}

// UserRating returns the rating history of handle.
func (s *Service) UserRating(ctx context.Context, handle string) (json.RawMessage, error) {
	c, err := s.upstream()
	if err != nil {
		return nil, err
	}
	return c.UserRating(ctx, handle)
}

// UserBlogs returns the blog entries of handle.
func (s *Service) UserBlogs(ctx context.Context, handle string) (json.RawMessage, error) {
	c, err := s.upstream()
	if err != nil {
		return nil, err
	}
	return c.UserBlogEntries(ctx, handle)
}

// ContestList returns all contests, or gym contests when gym is set.
func (s *Service) ContestList(ctx context.Context, gym bool) (json.RawMessage, error) {
	c, err := s.upstream()
	if err != nil {
		return nil, err
	}
	return c.ContestList(ctx, gym)
}

// UpcomingContests returns contests that have not started, soonest first.
func (s *Service) UpcomingContests(ctx context.Context) ([]model.Contest, error) {
	raw, err := s.ContestList(ctx, false)
	if err != nil {
		return nil, err
	}
	var all []model.Contest
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, &codeforces.UnavailableError{Method: codeforces.MethodContestList, Err: fmt.Errorf("decode contests: %w", err)}
	}
	upcoming := make([]model.Contest, 0)
	for _, c := range all {
		if c.Upcoming() {
			upcoming = append(upcoming, c)
		}
	}
	slices.SortStableFunc(upcoming, func(a, b model.Contest) int {
		switch {
		case a.StartTimeSeconds < b.StartTimeSeconds:
			return -1
		case a.StartTimeSeconds > b.StartTimeSeconds:
			return 1
		}
		return 0
	})
	return upcoming, nil
}

// Problems returns the problemset filtered by tags.
func (s *Service) Problems(ctx context.Context, tags []string) (json.RawMessage, error) {
	c, err := s.upstream()
	if err != nil {
		return nil, err
	}
	return c.ProblemsetProblems(ctx, tags)
}

// ContestStandings returns a standings page of contestID.
func (s *Service) ContestStandings(ctx context.Context, contestID, from, count int) (json.RawMessage, error) {
	c, err := s.upstream()
	if err != nil {
		return nil, err
	}
	return c.ContestStandings(ctx, contestID, from, count)
}

type standings struct {
	Problems json.RawMessage `json:"problems"`
	Rows     json.RawMessage `json:"rows"`
}

func (s *Service) standings(ctx context.Context, contestID, count int) (standings, error) {
	raw, err := s.ContestStandings(ctx, contestID, codeforces.DefaultStandingsFrom, count)
	if err != nil {
		return standings{}, err
	}
	var st standings
	if err := json.Unmarshal(raw, &st); err != nil {
		return standings{}, &codeforces.UnavailableError{Method: codeforces.MethodContestStandings, Err: fmt.Errorf("decode standings: %w", err)}
	}
	return st, nil
}

var emptyArray = json.RawMessage("[]")

// ContestProblems returns the problem list of contestID.
func (s *Service) ContestProblems(ctx context.Context, contestID int) (json.RawMessage, error) {
	st, err := s.standings(ctx, contestID, 1)
	if err != nil {
		return nil, err
	}
	if len(st.Problems) == 0 || string(st.Problems) == "null" {
		return emptyArray, nil
	}
	return st.Problems, nil
}

// ContestRows returns the first count standings rows of contestID.
func (s *Service) ContestRows(ctx context.Context, contestID, count int) (json.RawMessage, error) {
	st, err := s.standings(ctx, contestID, count)
	if err != nil {
		return nil, err
	}
	if len(st.Rows) == 0 || string(st.Rows) == "null" {
		return emptyArray, nil
	}
	return st.Rows, nil
}

// RecentStatus returns the latest submissions on the platform.
func (s *Service) RecentStatus(ctx context.Context, count int) (json.RawMessage, error) {
	c, err := s.upstream()
	if err != nil {
		return nil, err
	}
	return c.RecentStatus(ctx, count)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"upstream":         s.baseURL,
		"cacheBackend":     s.cacheBackend,
		"cacheTTLSeconds":  int(s.cacheTTL / time.Second),
		"cacheMaxEntries":  s.cacheMaxEntries,
		"submissionsCount": s.submissionsCount,
		"maxBatchHandles":  s.maxBatchHandles,
		"batchConcurrency": s.batchConcurrency,
	}

	if s.started {
		if r, ok := s.store.(cache.StatsReporter); ok {
			cs := r.Stats(context.Background())
			stats["cacheEntries"] = cs.Entries
			stats["cacheHits"] = cs.Hits
			stats["cacheMisses"] = cs.Misses
			metrics.UpdateCacheEntries(cs.Entries)
		}
	}

	return stats
}
