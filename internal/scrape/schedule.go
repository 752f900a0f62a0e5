package scrape

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoScheduleData distinguishes "the schedule table is missing or empty"
// from a month that legitimately parsed to zero races.
var ErrNoScheduleData = errors.New("no schedule data")

// The schedule feed only advertises meetings; every meeting is assumed to
// host exactly twelve rounds.
const roundsPerMeeting = 12

var meetingTokenRe = regexp.MustCompile(`/race/list/(\d+)/`)

// ParseSchedule returns every race identifier for the month covered by a
// schedule document. Identifiers are synthesized per meeting token in
// discovery order, rounds ascending: "20" + 6-digit token + "01".."12".
func ParseSchedule(doc *goquery.Document) ([]string, error) {
	body := doc.Find("table.scheLs > tbody")
	if body.Length() == 0 {
		return nil, ErrNoScheduleData
	}

	var ids []string
	body.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		token := ExtractString(href, meetingTokenRe)
		if token == "" {
			// Non-race cell.
			return
		}
		for round := 1; round <= roundsPerMeeting; round++ {
			ids = append(ids, fmt.Sprintf("20%s%02d", token, round))
		}
	})

	if len(ids) == 0 {
		return nil, ErrNoScheduleData
	}
	return ids, nil
}
