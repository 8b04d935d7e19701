package simplenotes_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

func TestNodeRetentionLimit(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		set   bool
		want  int
	}{
		{"absent", nil, false, 99},
		{"null", nil, true, 99},
		{"int", 5, true, 5},
		{"int64", int64(7), true, 7},
		{"float from JSON", float64(3), true, 3},
		{"json number", json.Number("12"), true, 12},
		{"zero", 0, true, 0},
		{"NaN", math.NaN(), true, 99},
		{"string", "10", true, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &simplenotes.Node{Metadata: map[string]interface{}{}}
			if tt.set {
				node.Metadata[simplenotes.MetadataVersionRetentionLimit] = tt.value
			}
			assert.Equal(t, tt.want, node.RetentionLimit(simplenotes.DefaultVersionRetentionLimit))
		})
	}
}

func TestCleanupPeriodCutoff(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		period simplenotes.CleanupPeriod
		want   time.Time
	}{
		{simplenotes.CleanupDay, time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC)},
		{simplenotes.CleanupWeek, time.Date(2024, 3, 24, 12, 0, 0, 0, time.UTC)},
		{simplenotes.CleanupMonth, now.AddDate(0, -1, 0)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			got, err := tt.period.Cutoff(now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := simplenotes.CleanupPeriod("fortnight").Cutoff(now)
	assert.ErrorIs(t, err, simplenotes.ErrInvalidCleanupPeriod)
}

func TestDocument(t *testing.T) {
	assert.NoError(t, simplenotes.EmptyDocument().Validate())
	assert.NoError(t, simplenotes.Document(` {"type":"doc"} `).Validate())
	assert.ErrorIs(t, simplenotes.Document(`[]`).Validate(), simplenotes.ErrInvalidDocument)
	assert.ErrorIs(t, simplenotes.Document(`{"type":`).Validate(), simplenotes.ErrInvalidDocument)
	assert.ErrorIs(t, simplenotes.Document(nil).Validate(), simplenotes.ErrInvalidDocument)

	var holder struct {
		Content simplenotes.Document `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"content":{"type":"doc","content":[]}}`), &holder))
	assert.JSONEq(t, `{"type":"doc","content":[]}`, string(holder.Content))

	out, err := json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":{"type":"doc","content":[]}}`, string(out))

	holder.Content = nil
	out, err = json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":null}`, string(out))
}

func TestRandomSlug(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		slug, err := simplenotes.RandomSlug()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9a-z]{16}$`, slug)
		seen[slug] = true
	}
	assert.Len(t, seen, 200)
}

func TestNodeClone(t *testing.T) {
	lib, err := simplenotes.NewLibrary("u", "Lib")
	require.NoError(t, err)
	page, err := simplenotes.NewPage("u", lib.ID, &lib.ID, "Page")
	require.NoError(t, err)
	page.Metadata["k"] = "v"

	c := page.Clone()
	c.Metadata["k"] = "changed"
	c.Content[0] = '['
	assert.Equal(t, "v", page.Metadata["k"])
	assert.Equal(t, byte('{'), page.Content[0])

	_, err = simplenotes.NewPage("u", lib.ID, nil, " ")
	assert.ErrorIs(t, err, simplenotes.ErrTitleRequired)
}
