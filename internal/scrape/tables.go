package scrape

// Canonicalization tables for single-character source abbreviations. All are
// immutable after init and partial on purpose: an unmapped value passes
// through Canonicalize unchanged.

// venueTable maps the 2-digit venue code embedded in a race identifier
// (digits 5-6) to the venue name.
var venueTable = map[string]string{
	"01": "札幌",
	"02": "函館",
	"03": "福島",
	"04": "新潟",
	"05": "東京",
	"06": "中山",
	"07": "中京",
	"08": "京都",
	"09": "阪神",
	"10": "小倉",
}

var surfaceTable = map[string]string{
	"芝": "turf",
	"ダ": "dirt",
	"障": "obstacle",
}

var goingTable = map[string]string{
	"良":  "firm",
	"稍":  "soft",
	"稍重": "soft",
	"重":  "heavy",
	"不":  "heavy",
	"不良": "heavy",
}

var weatherTable = map[string]string{
	"晴":  "sunny",
	"曇":  "cloudy",
	"小雨": "drizzle",
	"雨":  "rain",
	"小雪": "flurries",
	"雪":  "snow",
}

var sexTable = map[string]string{
	"牡": "male",
	"牝": "female",
	"セ": "gelding",
	"騸": "gelding",
}

// VenueName resolves the venue from identifier digits 5-6, independent of any
// markup. Unknown codes yield "".
func VenueName(raceID string) string {
	if len(raceID) < 6 {
		return ""
	}
	return venueTable[raceID[4:6]]
}
