package analyses

import "time"

// AnalysisResponse is the public JSON shape of an analysis.
type AnalysisResponse struct {
	ID              string    `json:"id"`
	AnalysisType    string    `json:"analysisType"`
	Result          *string   `json:"result"`
	Prompt          *string   `json:"prompt"`
	ConfidenceScore *float64  `json:"confidenceScore"`
	Status          string    `json:"status"`
	ErrorMessage    *string   `json:"errorMessage"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ClauseResponse is the public JSON shape of an extracted clause.
type ClauseResponse struct {
	ID                      string    `json:"id"`
	ClauseType              string    `json:"clauseType"`
	ClauseText              string    `json:"clauseText"`
	PlainEnglishExplanation *string   `json:"plainEnglishExplanation"`
	ImportanceLevel         string    `json:"importanceLevel"`
	ConfidenceScore         float64   `json:"confidenceScore"`
	CreatedAt               time.Time `json:"createdAt"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type templateRequest struct {
	TemplateType string `json:"templateType"`
	Requirements string `json:"requirements"`
}

func toAnalysisResponse(a Analysis) AnalysisResponse {
	return AnalysisResponse{
		ID:              a.ID,
		AnalysisType:    string(a.Type),
		Result:          a.Result,
		Prompt:          a.Prompt,
		ConfidenceScore: a.ConfidenceScore,
		Status:          string(a.Status),
		ErrorMessage:    a.ErrorMessage,
		CreatedAt:       a.CreatedAt,
	}
}

func toAnalysisResponses(items []Analysis) []AnalysisResponse {
	out := make([]AnalysisResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toAnalysisResponse(a))
	}
	return out
}

func toClauseResponses(items []Clause) []ClauseResponse {
	out := make([]ClauseResponse, 0, len(items))
	for _, c := range items {
		out = append(out, ClauseResponse{
			ID:                      c.ID,
			ClauseType:              c.ClauseType,
			ClauseText:              c.ClauseText,
			PlainEnglishExplanation: c.Explanation,
			ImportanceLevel:         string(c.Importance),
			ConfidenceScore:         c.ConfidenceScore,
			CreatedAt:               c.CreatedAt,
		})
	}
	return out
}
