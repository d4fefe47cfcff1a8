// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func TestFirstString(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"array", `{"v": ["First", "Second"]}`, "First"},
		{"empty array", `{"v": []}`, ""},
		{"plain string", `{"v": "Only"}`, "Only"},
		{"missing", `{}`, ""},
		{"number", `{"v": 3}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstString(gjson.Get(tt.json, "v")))
		})
	}
}

func TestIntField(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    int
		wantErr bool
	}{
		{"number", `{"v": 2021}`, 2021, false},
		{"numeric string", `{"v": "2021"}`, 2021, false},
		{"padded string", `{"v": " 42 "}`, 42, false},
		{"integral float", `{"v": 2021.0}`, 2021, false},
		{"missing", `{}`, 0, false},
		{"fraction", `{"v": 20.5}`, 0, true},
		{"word", `{"v": "soon"}`, 0, true},
		{"array", `{"v": [1]}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intField(gjson.Get(tt.json, "v"))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaperFromDocRejectsNonObject(t *testing.T) {
	_, err := paperFromDoc(gjson.Parse(`"2021ApJ...919..136K"`))
	assert.Error(t, err)
}

func TestParseSearchResponseEmptyDocs(t *testing.T) {
	results, err := parseSearchResponse([]byte(`{"response": {"numFound": 0, "start": 0, "docs": []}}`), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, results.TotalCount)
	assert.Empty(t, results.Papers)
	assert.False(t, results.HasMore())
}

func TestParseExportResponse(t *testing.T) {
	t.Run("empty export", func(t *testing.T) {
		got, err := parseExportResponse([]byte(`{"export": ""}`), []string{"2021ApJ...919..136K"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unrequested entries are dropped", func(t *testing.T) {
		body := `{"export": "@ARTICLE{2021ApJ...919..136K,\n}\n@ARTICLE{1999Other...1..1X,\n}\n"}`
		got, err := parseExportResponse([]byte(body), []string{"2021ApJ...919..136K"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"2021ApJ...919..136K": "@ARTICLE{2021ApJ...919..136K,\n}\n"}, got)
	})

	t.Run("substring match can misattribute", func(t *testing.T) {
		// The first entry cites the second bibcode in its note; the
		// heuristic attributes by the first requested bibcode found.
		body := `{"export": "@ARTICLE{2020AJ....160....1A,\n note = {see 2019AJ....158....2B}\n}\n"}`
		got, err := parseExportResponse([]byte(body), []string{"2019AJ....158....2B", "2020AJ....160....1A"})
		require.NoError(t, err)
		assert.Contains(t, got, "2019AJ....158....2B")
		assert.NotContains(t, got, "2020AJ....160....1A")
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseExportResponse([]byte(`not json`), []string{"x"})
		assert.ErrorIs(t, err, ErrDecode)
	})
}
