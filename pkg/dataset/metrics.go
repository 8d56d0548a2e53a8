package dataset

import (
	"errors"
	"math"
	"sort"
)

// ErrNoLabels is returned when no test case carries a ground truth label
var ErrNoLabels = errors.New("no ground truth labels found")

// Confusion is the confusion matrix of the filter against ground truth
type Confusion struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`
}

// Scores are rounded to three decimals
type Scores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Accuracy  float64 `json:"accuracy"`
}

// Stats describe the dataset composition
type Stats struct {
	TotalCases              int `json:"total_cases"`
	LabeledCases            int `json:"labeled_cases"`
	UnlabeledCases          int `json:"unlabeled_cases"`
	GroundTruthRelevant     int `json:"ground_truth_ai_relevant"`
	GroundTruthNotRelevant  int `json:"ground_truth_not_ai_relevant"`
	PredictedRelevant       int `json:"predicted_ai_relevant"`
	PredictedNotRelevant    int `json:"predicted_not_ai_relevant"`
	PredictedRelevantAll    int `json:"predicted_ai_relevant_all"`
	PredictedNotRelevantAll int `json:"predicted_not_ai_relevant_all"`
}

// Evaluation is the filter evaluation over labeled cases
type Evaluation struct {
	Scores    Scores    `json:"evaluation_metrics"`
	Confusion Confusion `json:"confusion_matrix"`
	Stats     Stats     `json:"dataset_stats"`
}

// SourceShare is the number of test cases per source
type SourceShare struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Evaluate scores the filter decisions of labeled cases. Unlabeled cases are counted in stats only.
func Evaluate(ds *TestDataset) (Evaluation, error) {
	var c Confusion
	res := Evaluation{Stats: Stats{TotalCases: len(ds.TestCases)}}
	for _, tc := range ds.TestCases {
		predicted := tc.FilteringResults.PassedAIFilter
		if predicted {
			res.Stats.PredictedRelevantAll++
		} else {
			res.Stats.PredictedNotRelevantAll++
		}
		if tc.GroundTruth.IsAIRelevant == nil {
			continue
		}
		actual := *tc.GroundTruth.IsAIRelevant
		switch {
		case predicted && actual:
			c.TruePositives++
		case predicted && !actual:
			c.FalsePositives++
		case !predicted && actual:
			c.FalseNegatives++
		default:
			c.TrueNegatives++
		}
	}

	labeled := c.TruePositives + c.FalsePositives + c.TrueNegatives + c.FalseNegatives
	res.Confusion = c
	res.Stats.LabeledCases = labeled
	res.Stats.UnlabeledCases = len(ds.TestCases) - labeled
	res.Stats.GroundTruthRelevant = c.TruePositives + c.FalseNegatives
	res.Stats.GroundTruthNotRelevant = c.FalsePositives + c.TrueNegatives
	res.Stats.PredictedRelevant = c.TruePositives + c.FalsePositives
	res.Stats.PredictedNotRelevant = c.TrueNegatives + c.FalseNegatives
	if labeled == 0 {
		return res, ErrNoLabels
	}

	precision := ratio(c.TruePositives, c.TruePositives+c.FalsePositives)
	recall := ratio(c.TruePositives, c.TruePositives+c.FalseNegatives)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	res.Scores = Scores{
		Precision: round3(precision),
		Recall:    round3(recall),
		F1:        round3(f1),
		Accuracy:  round3(ratio(c.TruePositives+c.TrueNegatives, labeled)),
	}
	return res, nil
}

// Sources returns test case counts per source, largest first
func Sources(ds *TestDataset) []SourceShare {
	counts := map[string]int{}
	for _, tc := range ds.TestCases {
		counts[tc.Input.SourceURL]++
	}
	res := make([]SourceShare, 0, len(counts))
	for src, n := range counts {
		res = append(res, SourceShare{Source: src, Count: n})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Count != res[j].Count {
			return res[i].Count > res[j].Count
		}
		return res[i].Source < res[j].Source
	})
	return res
}

// Interpretation returns short verdicts for the scores
func (s Scores) Interpretation() []string {
	var res []string
	if s.Precision < 0.7 {
		res = append(res, "low precision, many non-AI articles classified as AI")
	}
	if s.Recall < 0.7 {
		res = append(res, "low recall, missing many AI articles")
	}
	switch {
	case s.F1 > 0.8:
		res = append(res, "good overall performance (F1 > 0.8)")
	case s.F1 > 0.6:
		res = append(res, "moderate performance (F1 > 0.6)")
	default:
		res = append(res, "poor performance (F1 <= 0.6), needs improvement")
	}
	return res
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
