package analyses

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

const (
	jsonClauseConfidence    = 0.8
	labeledClauseConfidence = 0.6
)

var errNoClauses = errors.New("model output contained no recognizable clauses")

type parsedClause struct {
	ClauseType  string
	ClauseText  string
	Explanation string
	Importance  Importance
}

// rawClause accepts both the requested field names and the names used in
// the public clause JSON, which models sometimes echo back.
type rawClause struct {
	ClauseType              string `json:"clauseType"`
	Type                    string `json:"type"`
	ClauseText              string `json:"clauseText"`
	Text                    string `json:"text"`
	Explanation             string `json:"explanation"`
	PlainEnglishExplanation string `json:"plainEnglishExplanation"`
	Importance              string `json:"importance"`
	ImportanceLevel         string `json:"importanceLevel"`
}

var (
	clauseTypeLabel  = regexp.MustCompile(`(?i)clause\s*type\s*:`)
	clauseTextField  = regexp.MustCompile(`(?is)clause\s*text\s*:\s*(.*?)(?:\n[\s*#-]*(?:plain\s+english\s+)?(?:explanation|importance(?:\s+level)?)\s*:|\z)`)
	explanationField = regexp.MustCompile(`(?is)explanation\s*:\s*(.*?)(?:\n[\s*#-]*importance(?:\s+level)?\s*:|\z)`)
	importanceField  = regexp.MustCompile(`(?i)importance(?:\s+level)?\s*:\s*\**\s*([a-z]+)`)
)

// parseClauses reads clause extraction output. A JSON array is preferred;
// "Clause Type: ... Clause Text: ..." prose is accepted with a lower score.
func parseClauses(output string) ([]parsedClause, float64, error) {
	if clauses, ok := parseJSONClauses(output); ok {
		return clauses, jsonClauseConfidence, nil
	}
	if clauses := parseLabeledClauses(output); len(clauses) > 0 {
		return clauses, labeledClauseConfidence, nil
	}
	return nil, 0, errNoClauses
}

func parseJSONClauses(output string) ([]parsedClause, bool) {
	body := stripCodeFence(output)
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	var raw []rawClause
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return nil, false
	}
	out := make([]parsedClause, 0, len(raw))
	for _, r := range raw {
		c := parsedClause{
			ClauseType:  firstNonBlank(r.ClauseType, r.Type),
			ClauseText:  firstNonBlank(r.ClauseText, r.Text),
			Explanation: firstNonBlank(r.Explanation, r.PlainEnglishExplanation),
			Importance:  ParseImportance(firstNonBlank(r.Importance, r.ImportanceLevel)),
		}
		if c.ClauseText == "" {
			continue
		}
		if c.ClauseType == "" {
			c.ClauseType = "General"
		}
		out = append(out, c)
	}
	// An explicit empty array is a valid answer; a non-empty one with no
	// usable entries is not.
	if len(raw) > 0 && len(out) == 0 {
		return nil, false
	}
	return out, true
}

func parseLabeledClauses(output string) []parsedClause {
	locs := clauseTypeLabel.FindAllStringIndex(output, -1)
	var out []parsedClause
	for i, loc := range locs {
		end := len(output)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := output[loc[1]:end]
		clauseType, _, _ := strings.Cut(block, "\n")

		m := clauseTextField.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		c := parsedClause{
			ClauseType: cleanLabelValue(clauseType),
			ClauseText: cleanLabelValue(m[1]),
			Importance: ImportanceMedium,
		}
		if c.ClauseText == "" {
			continue
		}
		if c.ClauseType == "" {
			c.ClauseType = "General"
		}
		if e := explanationField.FindStringSubmatch(block); e != nil {
			c.Explanation = cleanLabelValue(e[1])
		}
		if imp := importanceField.FindStringSubmatch(block); imp != nil {
			c.Importance = ParseImportance(imp[1])
		}
		out = append(out, c)
	}
	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func cleanLabelValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*\"'` ")
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
