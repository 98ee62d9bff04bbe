package harness

// Summary aggregates the outcomes of a suite.
// Name lists keep the order in which outcomes were supplied.
type Summary struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	Generated int `json:"generated"`
	Kept      int `json:"kept"`

	FailedTests  []string `json:"failed_tests"`
	SkippedTests []string `json:"skipped_tests"`
	ErroredTests []string `json:"errored_tests"`
}

// Summarize counts outcomes by kind.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{
		Total:        len(outcomes),
		FailedTests:  []string{},
		SkippedTests: []string{},
		ErroredTests: []string{},
	}
	for _, o := range outcomes {
		switch o.Kind {
		case KindPassed:
			s.Passed++
		case KindFailed:
			s.Failed++
			s.FailedTests = append(s.FailedTests, o.Test)
		case KindSkipped:
			s.Skipped++
			s.SkippedTests = append(s.SkippedTests, o.Test)
		case KindErrored:
			s.Errored++
			s.ErroredTests = append(s.ErroredTests, o.Test)
		case KindGenerated:
			s.Generated++
		case KindKept:
			s.Kept++
		}
	}
	return s
}

// OK reports whether no test failed or errored. Skipped tests do not count
// against a suite.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Errored == 0
}
