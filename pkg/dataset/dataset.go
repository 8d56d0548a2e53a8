// Package dataset converts relevance filter test cases into evaluation datasets
// and scores the filter against ground truth labels.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// evaluation dataset identity
const (
	EvalName        = "ai_content_filter_evaluation"
	EvalDescription = "Evaluation dataset for AI content filtering accuracy"
)

// TestDataset is a set of filter test cases, labeled or not
type TestDataset struct {
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	TestCases []TestCase      `json:"test_cases"`
}

// TestCase is a single article with the filter decision and an optional ground truth label.
// Fields with loose shapes are kept raw and passed through as is.
type TestCase struct {
	ID               json.RawMessage  `json:"id"`
	ArticleID        json.RawMessage  `json:"article_id"`
	Input            CaseInput        `json:"input"`
	GroundTruth      GroundTruth      `json:"ground_truth"`
	FilteringResults FilteringResults `json:"filtering_results"`
}

// CaseInput is the article under test
type CaseInput struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	SourceURL     string `json:"source_url"`
	SourceType    string `json:"source_type"`
	PublishedDate string `json:"published_date"`
}

// GroundTruth is a manual label, nil IsAIRelevant means unlabeled
type GroundTruth struct {
	IsAIRelevant *bool           `json:"is_ai_relevant"`
	AICategories []string        `json:"ai_categories"`
	Confidence   json.RawMessage `json:"confidence"`
}

// FilteringResults is what the filter decided
type FilteringResults struct {
	FinalClassification json.RawMessage `json:"final_classification"`
	PassedAIFilter      bool            `json:"passed_ai_filter"`
}

// EvalDataset is the generic evaluation dataset shape
type EvalDataset struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	Items       []EvalItem      `json:"items"`
}

// EvalItem is a single evaluation item
type EvalItem struct {
	ID             json.RawMessage `json:"id"`
	Input          EvalInput       `json:"input"`
	ExpectedOutput ExpectedOutput  `json:"expected_output"`
	ActualOutput   ActualOutput    `json:"actual_output"`
	Metadata       ItemMetadata    `json:"metadata"`
}

// EvalInput wraps the article
type EvalInput struct {
	Article EvalArticle `json:"article"`
}

// EvalArticle is the article sent to the filter
type EvalArticle struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// ExpectedOutput is the ground truth label
type ExpectedOutput struct {
	IsAIRelevant *bool           `json:"is_ai_relevant"`
	Categories   []string        `json:"categories"`
	Confidence   json.RawMessage `json:"confidence"`
}

// ActualOutput is the recorded filter decision
type ActualOutput struct {
	Classification json.RawMessage `json:"classification"`
	PassedFilter   bool            `json:"passed_filter"`
}

// ItemMetadata is per-item metadata, csv rows also carry the actual output here
type ItemMetadata struct {
	SourceType           string          `json:"source_type"`
	PublishedDate        string          `json:"published_date"`
	ArticleID            json.RawMessage `json:"article_id"`
	ActualClassification json.RawMessage `json:"actual_classification,omitempty"`
	PassedFilter         *bool           `json:"passed_filter,omitempty"`
}

// Read decodes a test dataset
func Read(r io.Reader) (*TestDataset, error) {
	var ds TestDataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode test dataset: %w", err)
	}
	return &ds, nil
}

// Load reads a test dataset file
func Load(path string) (*TestDataset, error) {
	fh, err := os.Open(path) //nolint:gosec // path comes from CLI
	if err != nil {
		return nil, fmt.Errorf("open test dataset: %w", err)
	}
	defer fh.Close()
	return Read(fh)
}

// ToEval converts test cases into the evaluation dataset
func ToEval(ds *TestDataset) EvalDataset {
	res := EvalDataset{Name: EvalName, Description: EvalDescription, Metadata: ds.Metadata, Items: make([]EvalItem, 0, len(ds.TestCases))}
	if res.Metadata == nil {
		res.Metadata = json.RawMessage("{}")
	}
	for _, tc := range ds.TestCases {
		res.Items = append(res.Items, EvalItem{
			ID:             tc.ID,
			Input:          EvalInput{Article: EvalArticle{Title: tc.Input.Title, Content: tc.Input.Content, Source: tc.Input.SourceURL}},
			ExpectedOutput: expected(tc),
			ActualOutput:   ActualOutput{Classification: tc.FilteringResults.FinalClassification, PassedFilter: tc.FilteringResults.PassedAIFilter},
			Metadata:       ItemMetadata{SourceType: tc.Input.SourceType, PublishedDate: tc.Input.PublishedDate, ArticleID: tc.ArticleID},
		})
	}
	return res
}

// WriteJSON writes the evaluation dataset as indented json
func WriteJSON(w io.Writer, ds *TestDataset) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToEval(ds)); err != nil {
		return fmt.Errorf("encode evaluation dataset: %w", err)
	}
	return nil
}

// WriteCSV writes the evaluation dataset as csv with id,input,expected_output,metadata columns,
// every cell except id is a json document
func WriteCSV(w io.Writer, ds *TestDataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "input", "expected_output", "metadata"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, tc := range ds.TestCases {
		passed := tc.FilteringResults.PassedAIFilter
		cells := []any{
			EvalArticle{Title: tc.Input.Title, Content: tc.Input.Content, Source: tc.Input.SourceURL},
			expected(tc),
			ItemMetadata{
				SourceType:           tc.Input.SourceType,
				PublishedDate:        tc.Input.PublishedDate,
				ArticleID:            tc.ArticleID,
				ActualClassification: orNull(tc.FilteringResults.FinalClassification),
				PassedFilter:         &passed,
			},
		}
		row := []string{rawText(tc.ID)}
		for _, c := range cells {
			s, err := jsonCell(c)
			if err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
			row = append(row, s)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// OutputPath derives an output file name from the input one, data.json -> data_eval.csv
func OutputPath(input, ext string) string {
	base := strings.TrimSuffix(input, ".json")
	return base + "_eval." + strings.TrimPrefix(ext, ".")
}

func expected(tc TestCase) ExpectedOutput {
	return ExpectedOutput{IsAIRelevant: tc.GroundTruth.IsAIRelevant, Categories: tc.GroundTruth.AICategories, Confidence: tc.GroundTruth.Confidence}
}

func jsonCell(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// rawText renders a raw json scalar, strings without quotes
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
