package combine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/croptrust/gapanalysis-cli/internal/diag"
	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// Combine left-joins the in-situ score table onto the ex-situ table by
// species key and derives the combined min/max/mean scores with their
// priority classes. Every ex-situ species yields exactly one output row,
// in input order, whether or not an in-situ score exists for it. Rows are
// computed independently of each other.
//
// Species keys are normalized before matching: herbarium and genebank
// exports disagree on case, diacritic encoding, and inner whitespace for
// the same binomial.
func Combine(exsitu, insitu []model.FCSRow, collector *diag.Collector) []model.FinalAssessment {
	inByKey := make(map[string]*float64, len(insitu))
	for _, row := range insitu {
		key := normalizeKey(row.Species)
		if _, ok := inByKey[key]; ok {
			collector.Add(row.Species, diag.CodeDuplicateSpecies,
				"species %s appears more than once in the in-situ table; keeping the first row", row.Species)
			continue
		}
		inByKey[key] = row.Score
	}

	seen := make(map[string]bool, len(exsitu))
	out := make([]model.FinalAssessment, 0, len(exsitu))
	for _, row := range exsitu {
		key := normalizeKey(row.Species)
		if seen[key] {
			collector.Add(row.Species, diag.CodeDuplicateSpecies,
				"species %s appears more than once in the ex-situ table; keeping the first row", row.Species)
			continue
		}
		seen[key] = true
		out = append(out, combineRow(row.Species, row.Score, inByKey[key], collector))
	}

	return out
}

// combineRow derives one assessment from the two optional scores.
func combineRow(species string, ex, in *float64, collector *diag.Collector) model.FinalAssessment {
	fa := model.FinalAssessment{Species: species, FCSex: ex, FCSin: in}

	var values []float64
	if ex != nil {
		values = append(values, *ex)
	}
	if in != nil {
		values = append(values, *in)
	}

	if len(values) == 0 {
		// Min/max/mean over no values has no defined answer; flag it
		// instead of defaulting to zero.
		fa.Undefined = true
		collector.Add(species, diag.CodeUndefinedCombination,
			"both ex-situ and in-situ scores missing for %s; combined score undefined", species)
		return fa
	}

	mn, mx, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
		sum += v
	}
	mean := sum / float64(len(values))

	fa.FCScMin = &mn
	fa.FCScMax = &mx
	fa.FCScMean = &mean
	fa.MinClass = Classify(mn)
	fa.MaxClass = Classify(mx)
	fa.MeanClass = Classify(mean)
	return fa
}

// normalizeKey canonicalizes a species name for joining: Unicode NFC,
// case folding, trimmed and with inner whitespace collapsed.
func normalizeKey(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
