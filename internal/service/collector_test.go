package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"keiba/internal/config"
	"keiba/internal/fetch"
	"keiba/internal/models"
	"keiba/internal/repository"
	"keiba/internal/scrape"
)

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string, readyMarker string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", fetch.ErrNotFound, url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *stubFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type stubRepo struct {
	mu      sync.Mutex
	races   map[string]*models.Race
	upserts int
}

func newStubRepo() *stubRepo {
	return &stubRepo{races: make(map[string]*models.Race)}
}

func (r *stubRepo) UpsertRace(ctx context.Context, race *models.Race) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	stored := *race
	r.races[race.ID] = &stored
	return nil
}

func (r *stubRepo) GetRace(ctx context.Context, id string) (*models.Race, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.races[id], nil
}

func (r *stubRepo) ListRaces(ctx context.Context, params repository.ListRacesParams) ([]models.Race, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Race
	for _, race := range r.races {
		out = append(out, *race)
	}
	return out, nil
}

func (r *stubRepo) CountRaces(ctx context.Context, params repository.ListRacesParams) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.races)), nil
}

func newTestCollector(repo repository.Repository, fetcher fetch.Fetcher) *CollectorService {
	return NewCollector(repo, fetcher, zap.NewNop(),
		config.FetchConfig{
			RaceBaseURL:     "https://race.example.com",
			ScheduleBaseURL: "https://schedule.example.com",
		},
		config.CollectConfig{RateLimit: 10000, Workers: 4},
	)
}

// racePage renders a minimal detail page with a one-row result table.
func racePage(id, horse string) string {
	return fmt.Sprintf(`<html><head>
<title>テスト競走 2023年5月28日 東京11R</title>
<link rel="canonical" href="https://race.example.com/race/result.html?race_id=%s"/>
</head><body>
<div class="RaceData01">15:40発走 / 芝1600m / 天候:晴 / 馬場:良</div>
<div class="RaceData02">
<span>2回</span><span>東京</span><span>12日目</span><span>サラ系３歳</span>
<span>オープン</span><span>(国際)</span><span>馬齢</span>
<span>18頭</span><span>本賞金:1000,400万円</span>
</div>
<table id="All_Result_Table"><tbody><tr>
<td>1</td><td>1</td><td>1</td>
<td><a href="https://db.example.com/horse/2020100001/">%s</a></td>
<td>牡3</td><td>57.0</td>
<td><a href="https://db.example.com/jockey/01088/">ルメール</a></td>
<td>1:33.5</td><td>-</td><td>34.0</td>
<td>3.5</td><td>1</td><td>480</td>
<td><a href="https://db.example.com/trainer/01110/">堀宣行</a></td>
<td>480(0)</td>
</tr></tbody></table>
</body></html>`, id, horse)
}

// entryPage renders a pre-race page: race overview, no result table.
func entryPage(id string) string {
	return fmt.Sprintf(`<html><head>
<title>テスト競走 2023年5月28日 東京11R</title>
<link rel="canonical" href="https://race.example.com/race/shutuba.html?race_id=%s"/>
</head><body>
<div class="RaceData01">芝1600m / 天候:晴 / 馬場:良</div>
</body></html>`, id)
}

func TestCollectRejectsInvalidIdentifier(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := newTestCollector(newStubRepo(), fetcher)

	for _, rid := range []string{"", "abc", "2023", "20230502121", "2023050212110"} {
		err := svc.Collect(context.Background(), rid)
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("Collect(%q) = %v, want ErrInvalidIdentifier", rid, err)
		}
	}
	if calls := fetcher.fetched(); len(calls) != 0 {
		t.Fatalf("invalid identifiers reached the network: %v", calls)
	}
}

func TestCollectResultPage(t *testing.T) {
	const rid = "202305021211"
	repo := newStubRepo()
	fetcher := &stubFetcher{pages: map[string]string{}}
	svc := newTestCollector(repo, fetcher)
	fetcher.pages[svc.resultURL(rid)] = racePage(rid, "テストホース")

	if err := svc.Collect(context.Background(), rid); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	race := repo.races[rid]
	if race == nil {
		t.Fatalf("race not stored")
	}
	if race.Title != "テスト競走" || race.Venue != "東京" {
		t.Errorf("race = %q at %q", race.Title, race.Venue)
	}
	if len(race.Entries) != 1 {
		t.Fatalf("entries = %d", len(race.Entries))
	}
	entry := race.Entries[0]
	if entry.HorseName != "テストホース" {
		t.Errorf("HorseName = %q", entry.HorseName)
	}
	if entry.Prize != 10000000 {
		t.Errorf("Prize = %d", entry.Prize)
	}
	if race.CollectedAt.IsZero() {
		t.Errorf("CollectedAt not set")
	}

	// One result fetch plus the two best-effort enrichment fetches. No
	// fallback to the entry page when the result page exists.
	calls := fetcher.fetched()
	if len(calls) != 3 {
		t.Fatalf("calls = %v", calls)
	}
	for _, url := range calls {
		if url == svc.entryURL(rid) {
			t.Fatalf("entry page fetched despite result page present")
		}
	}
}

func TestCollectFallsBackToEntryPage(t *testing.T) {
	const rid = "202305021211"
	repo := newStubRepo()
	fetcher := &stubFetcher{pages: map[string]string{}}
	svc := newTestCollector(repo, fetcher)
	fetcher.pages[svc.entryURL(rid)] = entryPage(rid)

	if err := svc.Collect(context.Background(), rid); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	// Exactly one result attempt, then exactly one entry attempt. A race
	// with no entries triggers no enrichment fetches.
	calls := fetcher.fetched()
	want := []string{svc.resultURL(rid), svc.entryURL(rid)}
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", calls, want)
	}

	race := repo.races[rid]
	if race == nil {
		t.Fatalf("race not stored")
	}
	if len(race.Entries) != 0 {
		t.Errorf("pre-race record should have no entries, got %d", len(race.Entries))
	}
}

func TestCollectNoPage(t *testing.T) {
	const rid = "202305021211"
	fetcher := &stubFetcher{}
	svc := newTestCollector(newStubRepo(), fetcher)

	err := svc.Collect(context.Background(), rid)
	if !errors.Is(err, ErrNoPage) {
		t.Fatalf("err = %v, want ErrNoPage", err)
	}
	if calls := fetcher.fetched(); len(calls) != 2 {
		t.Fatalf("calls = %v, want result then entry attempt only", calls)
	}
}

func TestCollectReplacesStoredRecord(t *testing.T) {
	const rid = "202305021211"
	repo := newStubRepo()
	fetcher := &stubFetcher{pages: map[string]string{}}
	svc := newTestCollector(repo, fetcher)

	fetcher.pages[svc.resultURL(rid)] = racePage(rid, "イッカイメノウマ")
	if err := svc.Collect(context.Background(), rid); err != nil {
		t.Fatalf("first Collect: %v", err)
	}

	fetcher.pages[svc.resultURL(rid)] = racePage(rid, "ニカイメノウマ")
	if err := svc.Collect(context.Background(), rid); err != nil {
		t.Fatalf("second Collect: %v", err)
	}

	race := repo.races[rid]
	if repo.upserts != 2 {
		t.Fatalf("upserts = %d", repo.upserts)
	}
	if len(race.Entries) != 1 {
		t.Fatalf("entries = %d, want full replacement", len(race.Entries))
	}
	if race.Entries[0].HorseName != "ニカイメノウマ" {
		t.Errorf("HorseName = %q, want latest collection", race.Entries[0].HorseName)
	}
}

func TestCollectEnrichesOddsAndPedigree(t *testing.T) {
	const rid = "202305021211"
	repo := newStubRepo()
	fetcher := &stubFetcher{pages: map[string]string{}}
	svc := newTestCollector(repo, fetcher)

	fetcher.pages[svc.resultURL(rid)] = racePage(rid, "テストホース")
	fetcher.pages[svc.oddsURL(rid)] = `<div id="odds_fuku_block"><table><tbody>
<tr><th>馬名</th></tr>
<tr><td class="Horse_Name">テストホース</td><td class="Odds">1.2 - 1.5</td></tr>
</tbody></table></div>`
	fetcher.pages[svc.pedigreeURL(rid)] = `<div id="pedigree_block"><table><tbody>
<tr><th>馬名</th><th>父</th><th>母</th></tr>
<tr><td>テストホース</td><td>テストサイアー</td><td>テストダム</td></tr>
</tbody></table></div>`

	if err := svc.Collect(context.Background(), rid); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	entry := repo.races[rid].Entries[0]
	if entry.ShowOddsMin == nil || *entry.ShowOddsMin != 1.2 {
		t.Errorf("ShowOddsMin = %v", entry.ShowOddsMin)
	}
	if entry.ShowOddsMax == nil || *entry.ShowOddsMax != 1.5 {
		t.Errorf("ShowOddsMax = %v", entry.ShowOddsMax)
	}
	if entry.SireName == nil || *entry.SireName != "テストサイアー" {
		t.Errorf("SireName = %v", entry.SireName)
	}
	if entry.DamName == nil || *entry.DamName != "テストダム" {
		t.Errorf("DamName = %v", entry.DamName)
	}
	// Result-page odds stand when the odds page lacks a win block.
	if entry.WinOdds != 3.5 {
		t.Errorf("WinOdds = %v", entry.WinOdds)
	}
}

func TestBulkCollect(t *testing.T) {
	repo := newStubRepo()
	fetcher := &stubFetcher{pages: map[string]string{}}
	svc := newTestCollector(repo, fetcher)

	fetcher.pages[svc.scheduleURL("2023", "05")] = `<table class="scheLs"><tbody>
<tr><td><a href="/race/list/230502/">東京</a></td></tr>
</tbody></table>`
	// Only rounds 1 and 2 have pages; the other ten fail independently.
	fetcher.pages[svc.resultURL("2023050201")] = racePage("202305020101", "イチバンノウマ")
	fetcher.pages[svc.resultURL("2023050202")] = racePage("202305020102", "ニバンノウマ")

	result, err := svc.BulkCollect(context.Background(), "2023", "05")
	if err != nil {
		t.Fatalf("BulkCollect: %v", err)
	}

	if result.Month != "202305" {
		t.Errorf("Month = %q", result.Month)
	}
	if result.Total != 12 {
		t.Errorf("Total = %d", result.Total)
	}
	if result.Collected != 2 {
		t.Errorf("Collected = %d", result.Collected)
	}
	if result.Failed != 10 {
		t.Errorf("Failed = %d", result.Failed)
	}
	if result.Reasons["no_page"] != 10 {
		t.Errorf("Reasons = %v", result.Reasons)
	}
	if len(repo.races) != 2 {
		t.Errorf("stored races = %d", len(repo.races))
	}
}

func TestBulkCollectNoSchedule(t *testing.T) {
	svc := newTestCollector(newStubRepo(), &stubFetcher{})
	_, err := svc.BulkCollect(context.Background(), "2023", "05")
	if !errors.Is(err, scrape.ErrNoScheduleData) {
		t.Fatalf("err = %v, want ErrNoScheduleData", err)
	}
}

func TestDefaultMonth(t *testing.T) {
	tests := []struct {
		now   time.Time
		year  string
		month string
	}{
		{time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC), "2023", "05"},
		{time.Date(2023, 5, 28, 0, 0, 0, 0, time.UTC), "2023", "06"},
		{time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC), "2024", "01"},
	}
	for _, tt := range tests {
		year, month := DefaultMonth(tt.now)
		if year != tt.year || month != tt.month {
			t.Errorf("DefaultMonth(%v) = %s-%s, want %s-%s",
				tt.now.Format("2006-01-02"), year, month, tt.year, tt.month)
		}
	}
}
