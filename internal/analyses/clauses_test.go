package analyses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClauses(t *testing.T) {
	cases := []struct {
		name       string
		output     string
		wantCount  int
		wantScore  float64
		wantErr    bool
		firstType  string
		firstLevel Importance
	}{
		{
			name:       "plain json array",
			output:     `[{"clauseType":"Liability","clauseText":"Liability is capped.","explanation":"Limits damages.","importance":"critical"}]`,
			wantCount:  1,
			wantScore:  0.8,
			firstType:  "Liability",
			firstLevel: ImportanceCritical,
		},
		{
			name:       "json wrapped in prose",
			output:     "Here are the clauses:\n[{\"type\":\"Term\",\"text\":\"Twelve months.\",\"importanceLevel\":\"LOW\"}]\nLet me know.",
			wantCount:  1,
			wantScore:  0.8,
			firstType:  "Term",
			firstLevel: ImportanceLow,
		},
		{
			name:      "explicit empty array",
			output:    "[]",
			wantCount: 0,
			wantScore: 0.8,
		},
		{
			name:       "missing type defaults to General",
			output:     `[{"clauseText":"Something binding."}]`,
			wantCount:  1,
			wantScore:  0.8,
			firstType:  "General",
			firstLevel: ImportanceMedium,
		},
		{
			name:       "markdown labels",
			output:     "**Clause Type:** Indemnity\n**Clause Text:** Tenant indemnifies landlord.\n**Importance:** HIGH",
			wantCount:  1,
			wantScore:  0.6,
			firstType:  "Indemnity",
			firstLevel: ImportanceHigh,
		},
		{
			name:    "entries without text",
			output:  `[{"clauseType":"Empty"}]`,
			wantErr: true,
		},
		{
			name:    "free prose",
			output:  "The document is a lease.",
			wantErr: true,
		},
		{
			name:    "broken json",
			output:  `[{"clauseType": "Term",`,
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clauses, score, err := parseClauses(tc.output)
			if tc.wantErr {
				require.ErrorIs(t, err, errNoClauses)
				return
			}
			require.NoError(t, err)
			require.Len(t, clauses, tc.wantCount)
			assert.InDelta(t, tc.wantScore, score, 1e-9)
			if tc.wantCount > 0 {
				assert.Equal(t, tc.firstType, clauses[0].ClauseType)
				assert.Equal(t, tc.firstLevel, clauses[0].Importance)
			}
		})
	}
}

func TestParseImportanceDefaultsToMedium(t *testing.T) {
	assert.Equal(t, ImportanceHigh, ParseImportance(" high "))
	assert.Equal(t, ImportanceMedium, ParseImportance(""))
	assert.Equal(t, ImportanceMedium, ParseImportance("urgent"))
}

func TestParseType(t *testing.T) {
	got, err := ParseType("question_answer")
	require.NoError(t, err)
	assert.Equal(t, TypeQuestionAnswer, got)

	_, err = ParseType("RISK_SCORE")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
