package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"keiba/internal/config"
	"keiba/internal/fetch"
	"keiba/internal/models"
	"keiba/internal/repository"
	"keiba/internal/scrape"
)

var (
	// ErrInvalidIdentifier rejects a malformed race identifier before any
	// network call is made.
	ErrInvalidIdentifier = errors.New("invalid race identifier")
	// ErrNoPage means both the result page and the entry page fallback came
	// up empty.
	ErrNoPage = errors.New("no page for race")
)

// Race identifiers are 10 digits in the schedule feed's convention and 12 in
// the detail pages' convention; both are accepted.
var raceIDRe = regexp.MustCompile(`^\d{10}(\d{2})?$`)

// Ready markers: the class that must be present before a fetched page counts
// as rendered.
const (
	markerResult   = "ResultTableWrap"
	markerEntry    = "tablesorter"
	markerOdds     = "Odds"
	markerPedigree = "Shutuba_Past"
	markerSchedule = "layoutCol2M"
)

// CollectorService drives the per-race pipeline: validate, fetch with
// fallback, parse, enrich, upsert. Bulk mode runs one independent pipeline
// per identifier; a single race's failure never aborts the batch.
type CollectorService struct {
	Repo    repository.Repository
	Fetcher fetch.Fetcher
	Logger  *zap.Logger

	raceBase     string
	scheduleBase string
	workers      int
	limiter      *rate.Limiter
}

func NewCollector(repo repository.Repository, fetcher fetch.Fetcher, logger *zap.Logger, fetchCfg config.FetchConfig, collectCfg config.CollectConfig) *CollectorService {
	workers := collectCfg.Workers
	if workers <= 0 {
		workers = 1
	}
	rps := collectCfg.RateLimit
	if rps <= 0 {
		rps = 1.0
	}
	return &CollectorService{
		Repo:         repo,
		Fetcher:      fetcher,
		Logger:       logger,
		raceBase:     strings.TrimRight(fetchCfg.RaceBaseURL, "/"),
		scheduleBase: strings.TrimRight(fetchCfg.ScheduleBaseURL, "/"),
		workers:      workers,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *CollectorService) resultURL(rid string) string {
	return s.raceBase + "/race/result.html?race_id=" + rid + "&rf=race_list"
}

func (s *CollectorService) entryURL(rid string) string {
	return s.raceBase + "/race/shutuba.html?race_id=" + rid + "&rf=race_submenu"
}

func (s *CollectorService) oddsURL(rid string) string {
	return s.raceBase + "/odds/index.html?type=b1&race_id=" + rid + "&rf=shutuba_submenu"
}

func (s *CollectorService) pedigreeURL(rid string) string {
	return s.raceBase + "/race/shutuba_past.html?race_id=" + rid + "&rf=shutuba_submenu"
}

func (s *CollectorService) scheduleURL(year, month string) string {
	return s.scheduleBase + "/schedule/list/" + year + "/?month=" + month
}

// Collect runs the full pipeline for one race identifier. The result page is
// tried first; a miss falls back to the entry page, because the race may not
// have run yet. Odds and pedigree enrichment is best-effort and never fails
// the race.
func (s *CollectorService) Collect(ctx context.Context, rid string) error {
	if !raceIDRe.MatchString(rid) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, rid)
	}

	doc, err := s.Fetcher.Fetch(ctx, s.resultURL(rid), markerResult)
	if errors.Is(err, fetch.ErrNotFound) {
		doc, err = s.Fetcher.Fetch(ctx, s.entryURL(rid), markerEntry)
	}
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNoPage, rid)
		}
		return err
	}

	race, err := scrape.ParseRace(doc)
	if err != nil {
		return fmt.Errorf("race %s: %w", rid, err)
	}
	race.Entries = scrape.ParseEntries(doc, race.PurseSchedule)

	s.enrich(ctx, race)
	race.CollectedAt = time.Now().UTC()

	if err := s.Repo.UpsertRace(ctx, race); err != nil {
		return fmt.Errorf("upsert race %s: %w", race.ID, err)
	}
	s.Logger.Info("race collected",
		zap.String("race_id", race.ID),
		zap.String("venue", race.Venue),
		zap.Int("entries", len(race.Entries)),
	)
	return nil
}

// enrich joins the odds and pedigree pages into the entry list. The two
// fetches are independent reads and run concurrently; both must settle
// before the merge. Missing auxiliary pages degrade entries silently.
func (s *CollectorService) enrich(ctx context.Context, race *models.Race) {
	if len(race.Entries) == 0 {
		return
	}

	var (
		odds map[string]scrape.Odds
		peds map[string]scrape.Pedigree
		wg   sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if doc, err := s.Fetcher.Fetch(ctx, s.oddsURL(race.ID), markerOdds); err == nil {
			odds = scrape.ParseOdds(doc)
		} else {
			s.Logger.Debug("odds page unavailable", zap.String("race_id", race.ID), zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if doc, err := s.Fetcher.Fetch(ctx, s.pedigreeURL(race.ID), markerPedigree); err == nil {
			peds = scrape.ParsePedigree(doc)
		} else {
			s.Logger.Debug("pedigree page unavailable", zap.String("race_id", race.ID), zap.Error(err))
		}
	}()
	wg.Wait()

	scrape.MergeOdds(race.Entries, odds)
	scrape.MergePedigree(race.Entries, peds)
}

type BulkResult struct {
	Month     string         `json:"month"`
	Total     int            `json:"total"`
	Collected int            `json:"collected"`
	Failed    int            `json:"failed"`
	Reasons   map[string]int `json:"reasons,omitempty"`
}

// BulkCollect collects every race the month's schedule advertises. Each
// identifier runs through its own pipeline on a bounded worker pool behind a
// shared rate limiter; failures are tallied per reason and never abort the
// batch. Cancellation stops feeding the pool between identifiers, leaving
// already-upserted records intact.
func (s *CollectorService) BulkCollect(ctx context.Context, year, month string) (BulkResult, error) {
	result := BulkResult{Month: year + month}

	doc, err := s.Fetcher.Fetch(ctx, s.scheduleURL(year, month), markerSchedule)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return result, fmt.Errorf("%w: %s-%s", scrape.ErrNoScheduleData, year, month)
		}
		return result, err
	}
	ids, err := scrape.ParseSchedule(doc)
	if err != nil {
		return result, fmt.Errorf("schedule %s-%s: %w", year, month, err)
	}
	result.Total = len(ids)
	result.Reasons = make(map[string]int)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan string)
	)
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rid := range jobs {
				if err := s.limiter.Wait(ctx); err != nil {
					continue
				}
				err := s.Collect(ctx, rid)
				mu.Lock()
				if err != nil {
					result.Failed++
					result.Reasons[failureReason(err)]++
				} else {
					result.Collected++
				}
				mu.Unlock()
				if err != nil && !errors.Is(err, context.Canceled) {
					s.Logger.Warn("race collection failed",
						zap.String("race_id", rid),
						zap.Error(err),
					)
				}
			}
		}()
	}

feed:
	for _, rid := range ids {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- rid:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	s.Logger.Info("bulk collection finished",
		zap.String("month", result.Month),
		zap.Int("total", result.Total),
		zap.Int("collected", result.Collected),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		return "invalid_identifier"
	case errors.Is(err, ErrNoPage):
		return "no_page"
	case errors.Is(err, scrape.ErrMalformedDocument):
		return "malformed_document"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// DefaultMonth is the collection target when none is given: one week from
// now, rounded to its month. Early-month runs therefore pick up the current
// month and late-month runs the next.
func DefaultMonth(now time.Time) (year, month string) {
	target := now.AddDate(0, 0, 7)
	return target.Format("2006"), target.Format("01")
}
