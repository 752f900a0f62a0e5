package scrape

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"keiba/internal/models"
)

var (
	numRe         = regexp.MustCompile(`\d+`)
	nonASCIIRe    = regexp.MustCompile(`[^\x00-\x7F]+`)
	sexRe         = regexp.MustCompile(`[牡牝騸セ]`)
	ageRe         = regexp.MustCompile(`\d{1,2}`)
	burdenRe      = regexp.MustCompile(`\d{1,2}\.\d`)
	jockeyNameRe  = regexp.MustCompile(`[ぁ-んァ-ンー一-龥Ａ-Ｚ]+`)
	trainerNameRe = regexp.MustCompile(`[ぁ-んァ-ンー一-龥]+`)
	finishMinRe   = regexp.MustCompile(`(\d):\d{1,2}\.\d`)
	finishSecRe   = regexp.MustCompile(`\d:(\d{1,2}\.\d)`)
	winOddsRe     = regexp.MustCompile(`\d{1,3}\.\d`)
	bodyWeightRe  = regexp.MustCompile(`(\d+)\(?[+-]?\d*\)?`)
	weightDiffRe  = regexp.MustCompile(`\d+\(([+-]?\d+)\)`)
)

// Result-row cell positions. The source table is fixed-width; rows with
// fewer cells (spacers, notices) are skipped outright.
const resultRowCells = 15

// ParseEntries reads the result table into entries in row order. The purse
// schedule is needed up front because each entry's prize is derived from its
// rank immediately.
//
// On a not-yet-run race the detail page carries no result table and the
// returned slice is empty; that is a valid record state, not an error.
func ParseEntries(doc *goquery.Document, purse []int64) []models.Entry {
	var entries []models.Entry
	doc.Find("table#All_Result_Table > tbody > tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < resultRowCells {
			return
		}

		rank := ExtractInt(cells.Eq(0).Text(), numRe)
		entry := models.Entry{
			Position:       len(entries),
			Rank:           rank,
			Bracket:        ExtractInt(cells.Eq(1).Text(), numRe),
			HorseNumber:    ExtractInt(cells.Eq(2).Text(), numRe),
			HorseID:        linkID(cells.Eq(3)),
			HorseName:      ExtractString(cells.Eq(3).Text(), nonASCIIRe),
			Sex:            Canonicalize(ExtractString(cells.Eq(4).Text(), sexRe), sexTable),
			Age:            ExtractInt(cells.Eq(4).Text(), ageRe),
			BurdenWeight:   ExtractFloat(cells.Eq(5).Text(), burdenRe),
			JockeyID:       linkID(cells.Eq(6)),
			JockeyName:     ExtractString(cells.Eq(6).Text(), jockeyNameRe),
			FinishTime:     finishSeconds(cells.Eq(7).Text()),
			WinOdds:        ExtractFloat(cells.Eq(10).Text(), winOddsRe),
			TrainerID:      linkID(cells.Eq(13)),
			TrainerName:    ExtractString(cells.Eq(13).Find("a").Text(), trainerNameRe),
			BodyWeight:     ExtractInt(cells.Eq(14).Text(), bodyWeightRe),
			BodyWeightDiff: ExtractInt(cells.Eq(14).Text(), weightDiffRe),
			Prize:          PrizeFor(rank, purse),
		}
		entries = append(entries, entry)
	})
	return entries
}

// PrizeFor looks up the prize for a finish rank. Rank 0 (did not finish or
// void) and ranks past the end of the schedule earn nothing.
func PrizeFor(rank int, purse []int64) int64 {
	if rank >= 1 && rank <= len(purse) {
		return purse[rank-1]
	}
	return 0
}

// finishSeconds converts a "m:ss.s" finish time to seconds. Unparsable input
// (scratched entries, pre-race rows) yields 0.
func finishSeconds(text string) float64 {
	return ExtractFloat(text, finishMinRe)*60 + ExtractFloat(text, finishSecRe)
}

// linkID pulls the numeric identifier out of a cell's anchor href. Rows for
// scratched or unlinked entries carry no anchor; those ids are simply absent.
func linkID(cell *goquery.Selection) *string {
	href, ok := cell.Find("a").Attr("href")
	if !ok {
		return nil
	}
	id := ExtractString(href, numRe)
	if id == "" {
		return nil
	}
	return &id
}
