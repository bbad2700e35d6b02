package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectSkipsBracesInStrings(t *testing.T) {
	raw := `noise before {"a":"}{ \" {","b":{"c":1}} trailing {"x":2}`

	object, err := extractJSONObject(raw)
	require.NoError(t, err)
	require.Equal(t, `{"a":"}{ \" {","b":{"c":1}}`, object)
}

func TestExtractJSONObjectWithoutObject(t *testing.T) {
	_, err := extractJSONObject("I cannot grade this essay.")
	require.ErrorIs(t, err, ErrMalformedResponse)

	_, err = extractJSONObject(`{"categories": [`)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseEvaluationResponseReportsFirstOffendingCategory(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		index int
		field string
	}{
		{
			name:  "score above range",
			reply: `{"categories":[{"key":"grammar","score":90},{"key":"content","score":120}],"overallFeedback":"ok"}`,
			index: 1,
			field: "score",
		},
		{
			name:  "score is not numeric",
			reply: `{"categories":[{"key":"a","score":1},{"key":"b","score":2},{"key":"c","score":"high"}],"overallFeedback":"ok"}`,
			index: 2,
			field: "score",
		},
		{
			name:  "missing key and label",
			reply: `{"categories":[{"score":50}],"overallFeedback":"ok"}`,
			index: 0,
		},
		{
			name:  "blank key and label",
			reply: `{"categories":[{"key":"grammar","score":50},{"key":" ","label":"","score":50}],"overallFeedback":"ok"}`,
			index: 1,
			field: "key",
		},
		{
			name:  "lowest index wins",
			reply: `{"categories":[{"key":"a","score":1},{"key":"b","score":-4},{"key":"c"}],"overallFeedback":"ok"}`,
			index: 1,
			field: "score",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseEvaluationResponse(tc.reply)
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			require.Equal(t, tc.index, malformed.Index)
			if tc.field != "" {
				require.Equal(t, tc.field, malformed.Field)
			}
		})
	}
}

func TestParseEvaluationResponseDocumentErrors(t *testing.T) {
	replies := []string{
		`{"categories":[],"overallFeedback":"ok"}`,
		`{"categories":[{"key":"a","score":1}]}`,
		`{"categories":[{"key":"a","score":1}],"overallFeedback":"   "}`,
		`{"categories":"grammar","overallFeedback":"ok"}`,
	}

	for _, reply := range replies {
		_, err := parseEvaluationResponse(reply)
		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed, reply)
		require.Equal(t, -1, malformed.Index, reply)
	}
}

func TestSplitInstanceLocation(t *testing.T) {
	index, field := splitInstanceLocation("/categories/3/score")
	require.Equal(t, 3, index)
	require.Equal(t, "score", field)

	index, field = splitInstanceLocation("/overallFeedback")
	require.Equal(t, -1, index)
	require.Equal(t, "overallFeedback", field)
}
