package scrape

import (
	"testing"

	"keiba/internal/models"
)

const samplePedigreeHTML = `<html><body>
<div id="pedigree_block"><table><tbody>
<tr><th>馬名</th><th>父</th><th>母</th></tr>
<tr><td>タスティエーラ</td><td>サトノクラウン</td><td>パルティトゥーラ</td></tr>
<tr><td>ソールオリエンス</td><td>キタサンブラック</td><td>スキア</td></tr>
<tr><td>壊れた行</td></tr>
</tbody></table></div>
</body></html>`

func TestParsePedigree(t *testing.T) {
	peds := ParsePedigree(mustDoc(t, samplePedigreeHTML))

	if len(peds) != 2 {
		t.Fatalf("expected 2 horses, got %d", len(peds))
	}
	p := peds["タスティエーラ"]
	if p.Sire != "サトノクラウン" || p.Dam != "パルティトゥーラ" {
		t.Errorf("pedigree = %+v", p)
	}
	if _, ok := peds["壊れた行"]; ok {
		t.Errorf("short row should be skipped")
	}
}

func TestMergePedigree(t *testing.T) {
	entries := []models.Entry{
		{HorseName: "タスティエーラ"},
		{HorseName: "マッチしない馬"},
	}
	MergePedigree(entries, map[string]Pedigree{
		"タスティエーラ": {Sire: "サトノクラウン", Dam: "パルティトゥーラ"},
	})

	if entries[0].SireName == nil || *entries[0].SireName != "サトノクラウン" {
		t.Errorf("SireName = %v", entries[0].SireName)
	}
	if entries[0].DamName == nil || *entries[0].DamName != "パルティトゥーラ" {
		t.Errorf("DamName = %v", entries[0].DamName)
	}
	if entries[1].SireName != nil || entries[1].DamName != nil {
		t.Errorf("unmatched entry modified: %+v", entries[1])
	}
}
