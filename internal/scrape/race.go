package scrape

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gorm.io/datatypes"

	"keiba/internal/models"
)

// ErrMalformedDocument marks a fetched page whose mandatory structure is
// missing. Individual field misses degrade to zero values instead; only the
// structural anchors abort a race.
var ErrMalformedDocument = errors.New("malformed race document")

var (
	canonicalIDRe = regexp.MustCompile(`(\d{12})`)
	titleTextRe   = regexp.MustCompile(`[^\x00-\x7F]+`)
	gradeRe       = regexp.MustCompile(`\((J?G\d)\)`)
	roundRe       = regexp.MustCompile(`(\d{1,2})R`)
	surfaceRe     = regexp.MustCompile(`芝|ダ|障`)
	distanceRe    = regexp.MustCompile(`\d{4}`)
	weatherRe     = regexp.MustCompile(`晴|曇|小雨|雨|小雪|雪`)
	goingRe       = regexp.MustCompile(`良|稍重|稍|重|不良|不`)
	startTimeRe   = regexp.MustCompile(`\d{2}:\d{2}`)
	headCountRe   = regexp.MustCompile(`([0-9]+)頭`)
	prizeRe       = regexp.MustCompile(`\d+`)
)

// ParseRace builds a race record from a detail document. Entries are parsed
// separately by ParseEntries and attached by the caller.
//
// Identity comes from the page's own canonical link, not the request URL, so
// a redirected fetch cannot mislabel the record. The first overview line
// (div.RaceData01) is the mandatory structural anchor; the second
// (div.RaceData02) is read positionally and degrades to defaults when absent
// or reordered.
func ParseRace(doc *goquery.Document) (*models.Race, error) {
	href, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	id := ExtractString(href, canonicalIDRe)
	if id == "" {
		return nil, fmt.Errorf("%w: no canonical race id", ErrMalformedDocument)
	}

	overview := doc.Find("div.RaceData01")
	if overview.Length() == 0 {
		return nil, fmt.Errorf("%w: missing race overview", ErrMalformedDocument)
	}
	overviewText := overview.Text()

	title := doc.Find("title").Text()
	date, err := ExtractDate(title)
	if err != nil {
		// A race without a date is not a meaningful record.
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	// Not-yet-run races carry no start time; midnight stands in.
	startTime := ExtractString(overviewText, startTimeRe)
	if startTime == "" {
		startTime = "00:00"
	}
	scheduledAt, err := time.Parse("2006-01-02 15:04", date.Format("2006-01-02")+" "+startTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	race := &models.Race{
		ID:           id,
		Round:        ExtractInt(title, roundRe),
		Title:        ExtractString(title, titleTextRe),
		TrackSurface: Canonicalize(ExtractString(overviewText, surfaceRe), surfaceTable),
		Distance:     ExtractInt(overviewText, distanceRe),
		Weather:      Canonicalize(ExtractString(overviewText, weatherRe), weatherTable),
		Going:        Canonicalize(ExtractString(overviewText, goingRe), goingTable),
		Venue:        VenueName(id),
		ScheduledAt:  scheduledAt,
		DateStr:      date.Format("2006-01-02"),
	}
	if grade := ExtractString(title, gradeRe); grade != "" {
		race.Grade = &grade
	}

	// Head count and purse live in fixed positions of the second overview
	// block: 8th and 9th span. Missing or reordered markup yields defaults.
	spans := doc.Find("div.RaceData02 > span")
	race.HeadCount = ExtractInt(spans.Eq(7).Text(), headCountRe)
	race.PurseSchedule = parsePurse(spans.Eq(8).Text())
	if len(race.PurseSchedule) > 0 {
		race.MaxPrize = race.PurseSchedule[0]
	}

	return race, nil
}

// parsePurse turns the comma-separated prize text ("本賞金:1840,740,460...万円",
// amounts in units of 10000 yen) into yen amounts ordered by finish rank.
func parsePurse(text string) datatypes.JSONSlice[int64] {
	if text == "" {
		return nil
	}
	var purse datatypes.JSONSlice[int64]
	for _, part := range strings.Split(text, ",") {
		amount := ExtractInt(part, prizeRe)
		if amount == 0 {
			continue
		}
		purse = append(purse, int64(amount)*10000)
	}
	return purse
}
