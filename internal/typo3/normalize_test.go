package typo3

import (
	"encoding/json"
	"testing"
	"time"

	"fahndungsportal/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalizeItem_RoundTrip(t *testing.T) {
	raw := decodeRaw(t, `{"id":"1","title":"X","status":"AKTIV"}`).(map[string]any)

	item, ok := normalizeItem(raw)
	require.True(t, ok)

	want := model.FahndungItem{
		ID:     1,
		Title:  "X",
		Status: model.StatusActive,
		Type:   model.TypeWanted,
		Slug:   "fahndung-1",
	}
	if diff := cmp.Diff(want, item); diff != "" {
		t.Errorf("normalizeItem() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   any
		want model.FahndungStatus
	}{
		{"active", model.StatusActive},
		{"AKTIV", model.StatusActive},
		{" Abgeschlossen ", model.StatusCompleted},
		{"archiviert", model.StatusArchived},
		{"ARCHIVED", model.StatusArchived},
		{"unbekannt", model.StatusActive},
		{"", model.StatusActive},
		{nil, model.StatusActive},
		{42, model.StatusActive},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeStatus(tt.in), "input %v", tt.in)
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   any
		want model.FahndungType
	}{
		{"missing_person", model.TypeMissingPerson},
		{"Vermisst", model.TypeMissingPerson},
		{"missing person", model.TypeMissingPerson},
		{"Zeugenaufruf", model.TypeWitnessAppeal},
		{"witness-appeal", model.TypeWitnessAppeal},
		{"gesucht", model.TypeWanted},
		{"something else", model.TypeWanted},
		{nil, model.TypeWanted},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeType(tt.in), "input %v", tt.in)
	}
}

func TestNormalizeResponse_Shapes(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name      string
		body      string
		wantIDs   []int
		wantTotal int
		wantPage  int
	}{
		{
			name:      "items and meta with string numbers",
			body:      `{"items":[{"id":1,"title":"A"},{"id":"2","title":"B"}],"meta":{"total":"40","page":"2","pageSize":"2"}}`,
			wantIDs:   []int{1, 2},
			wantTotal: 40,
			wantPage:  2,
		},
		{
			name:      "data wrapper object",
			body:      `{"data":{"items":[{"uid":5,"title":"E"}],"meta":{"total":1}}}`,
			wantIDs:   []int{5},
			wantTotal: 1,
			wantPage:  1,
		},
		{
			name:      "data array",
			body:      `{"data":[{"id":3},{"id":4}]}`,
			wantIDs:   []int{3, 4},
			wantTotal: 2,
			wantPage:  1,
		},
		{
			name:      "bare array",
			body:      `[{"id":9}]`,
			wantIDs:   []int{9},
			wantTotal: 1,
			wantPage:  1,
		},
		{
			name:      "null items",
			body:      `{"items":null,"meta":{"total":0}}`,
			wantIDs:   []int{},
			wantTotal: 0,
			wantPage:  1,
		},
		{
			name:      "items without id are dropped",
			body:      `{"items":[{"title":"no id"},{"id":0},{"id":"abc"},"junk",{"id":7}]}`,
			wantIDs:   []int{7},
			wantTotal: 1,
			wantPage:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := normalizeResponse(decodeRaw(t, tt.body), now)

			require.NotNil(t, resp.Items)
			ids := make([]int, 0, len(resp.Items))
			for _, item := range resp.Items {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, resp.Meta.Total)
			assert.Equal(t, tt.wantPage, resp.Meta.Page)
			assert.Equal(t, now.Unix(), resp.Meta.LastUpdated)
		})
	}
}

func TestNormalizeItem_Fields(t *testing.T) {
	raw := decodeRaw(t, `{
		"uid": 12,
		"title": "  Raub am Hauptbahnhof ",
		"teaser": "Zeugen gesucht",
		"status": "erledigt",
		"fahndungType": "Zeugenaufruf",
		"ort": "Stuttgart",
		"delikt": "Raub",
		"crdate": 1700000000,
		"slug": "raub-hbf",
		"image": [{"publicUrl": "https://cdn.example.org/a.jpg", "alt": "Tatort"}]
	}`).(map[string]any)

	item, ok := normalizeItem(raw)
	require.True(t, ok)

	want := model.FahndungItem{
		ID:          12,
		Title:       "Raub am Hauptbahnhof",
		Description: "Zeugen gesucht",
		Summary:     "Zeugen gesucht",
		Status:      model.StatusCompleted,
		Type:        model.TypeWitnessAppeal,
		Location:    "Stuttgart",
		Delikt:      "Raub",
		PublishedAt: "2023-11-14T22:13:20Z",
		Slug:        "raub-hbf",
		Image:       &model.Image{URL: "https://cdn.example.org/a.jpg", Alternative: "Tatort"},
	}
	if diff := cmp.Diff(want, item); diff != "" {
		t.Errorf("normalizeItem() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeImage(t *testing.T) {
	assert.Nil(t, normalizeImage(nil))
	assert.Nil(t, normalizeImage(""))
	assert.Nil(t, normalizeImage(map[string]any{"alt": "no url"}))
	assert.Equal(t, &model.Image{URL: "/a.jpg"}, normalizeImage("/a.jpg"))
	assert.Equal(t, &model.Image{URL: "/b.jpg", Alternative: "B"},
		normalizeImage(map[string]any{"src": "/b.jpg", "alternative": "B"}))
}

func TestNormalizeTimestamp(t *testing.T) {
	assert.Equal(t, "", normalizeTimestamp(nil))
	assert.Equal(t, "2024-03-01T10:00:00+01:00", normalizeTimestamp("2024-03-01T10:00:00+01:00"))
	assert.Equal(t, "2023-11-14T22:13:20Z", normalizeTimestamp("1700000000"))
	assert.Equal(t, "2023-11-14T22:13:20Z", normalizeTimestamp(float64(1700000000)))
	assert.Equal(t, "", normalizeTimestamp(float64(0)))
}

func TestNormalizeItem_DecimalIDs(t *testing.T) {
	tests := []struct {
		name     string
		id       any
		wantID   int
		wantSlug string
		wantOK   bool
	}{
		{name: "Leading zero", id: "010", wantID: 10, wantSlug: "fahndung-10", wantOK: true},
		{name: "Not octal", id: "08", wantID: 8, wantSlug: "fahndung-8", wantOK: true},
		{name: "Padded", id: " 42 ", wantID: 42, wantSlug: "fahndung-42", wantOK: true},
		{name: "Float string", id: "7.0", wantID: 7, wantSlug: "fahndung-7", wantOK: true},
		{name: "Number", id: float64(5), wantID: 5, wantSlug: "fahndung-5", wantOK: true},
		{name: "Hex is rejected", id: "0x1F", wantOK: false},
		{name: "Zero", id: "000", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, ok := normalizeItem(map[string]any{"id": tt.id, "title": "Vermisst"})
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantID, item.ID)
			assert.Equal(t, tt.wantSlug, item.Slug)
		})
	}
}

func TestNormalizeResponse_DecimalMeta(t *testing.T) {
	raw := decodeRaw(t, `{"items": [{"id": 1}], "meta": {"total": "010", "page": "02", "pageSize": "09"}}`)

	got := normalizeResponse(raw, time.Unix(1700000000, 0))
	assert.Equal(t, 10, got.Meta.Total)
	assert.Equal(t, 2, got.Meta.Page)
	assert.Equal(t, 9, got.Meta.PageSize)
}
