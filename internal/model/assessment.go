package model

// ScoreRow holds the ex-situ geographic representativeness score for one
// species. Rows are immutable once computed and appear in input order.
type ScoreRow struct {
	Species string  `csv:"species" json:"species"`
	GRSex   float64 `csv:"grs_ex" json:"grs_ex"`
}

// FCSRow is one species' final conservation score for a single side
// (ex-situ or in-situ). Score is nil when the source cell was blank.
type FCSRow struct {
	Species string
	Score   *float64
}

// FinalAssessment is the combined conservation assessment for one species.
// FCSin and the summary statistics are nil when the in-situ side is missing
// and the statistic is undefined; Undefined is set when both sides are
// missing, in which case no class is assigned.
type FinalAssessment struct {
	Species   string   `csv:"species" json:"species"`
	FCSex     *float64 `csv:"fcs_ex" json:"fcs_ex,omitempty"`
	FCSin     *float64 `csv:"fcs_in" json:"fcs_in,omitempty"`
	FCScMin   *float64 `csv:"fcsc_min" json:"fcsc_min,omitempty"`
	FCScMax   *float64 `csv:"fcsc_max" json:"fcsc_max,omitempty"`
	FCScMean  *float64 `csv:"fcsc_mean" json:"fcsc_mean,omitempty"`
	MinClass  string   `csv:"fcsc_min_class" json:"fcsc_min_class,omitempty"`
	MaxClass  string   `csv:"fcsc_max_class" json:"fcsc_max_class,omitempty"`
	MeanClass string   `csv:"fcsc_mean_class" json:"fcsc_mean_class,omitempty"`
	Undefined bool     `csv:"-" json:"undefined,omitempty"`
}
