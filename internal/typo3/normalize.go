package typo3

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fahndungsportal/internal/model"

	"github.com/spf13/cast"
)

var statusAliases = map[string]model.FahndungStatus{
	"active":        model.StatusActive,
	"aktiv":         model.StatusActive,
	"open":          model.StatusActive,
	"offen":         model.StatusActive,
	"completed":     model.StatusCompleted,
	"abgeschlossen": model.StatusCompleted,
	"erledigt":      model.StatusCompleted,
	"solved":        model.StatusCompleted,
	"closed":        model.StatusCompleted,
	"archived":      model.StatusArchived,
	"archiviert":    model.StatusArchived,
	"archive":       model.StatusArchived,
}

var typeAliases = map[string]model.FahndungType{
	"missing_person": model.TypeMissingPerson,
	"missing":        model.TypeMissingPerson,
	"vermisst":       model.TypeMissingPerson,
	"vermisste":      model.TypeMissingPerson,
	"vermisstenfall": model.TypeMissingPerson,
	"witness_appeal": model.TypeWitnessAppeal,
	"witness":        model.TypeWitnessAppeal,
	"zeugenaufruf":   model.TypeWitnessAppeal,
	"zeugen":         model.TypeWitnessAppeal,
	"wanted":         model.TypeWanted,
	"gesucht":        model.TypeWanted,
	"straftaeter":    model.TypeWanted,
	"straftäter":     model.TypeWanted,
	"fahndung":       model.TypeWanted,
	"wanted_person":  model.TypeWanted,
	"missing-person": model.TypeMissingPerson,
	"witness-appeal": model.TypeWitnessAppeal,
}

// normalizeStatus maps any upstream status onto the closed set; unknown values
// become StatusActive.
func normalizeStatus(v any) model.FahndungStatus {
	key := strings.ToLower(strings.TrimSpace(cast.ToString(v)))
	if s, ok := statusAliases[key]; ok {
		return s
	}
	return model.StatusActive
}

// normalizeType maps any upstream type onto the closed set; unknown values
// become TypeWanted.
func normalizeType(v any) model.FahndungType {
	key := strings.ToLower(strings.TrimSpace(cast.ToString(v)))
	key = strings.ReplaceAll(key, " ", "_")
	if t, ok := typeAliases[key]; ok {
		return t
	}
	return model.TypeWanted
}

// normalizeResponse accepts the shapes the CMS has been seen to send and
// returns a listing with every field coerced. Items that lack a usable id are
// dropped.
func normalizeResponse(raw any, now time.Time) model.FahndungenResponse {
	rawItems, rawMeta := unwrapListing(raw)
	items := NormalizeItems(rawItems)

	meta := model.Meta{
		Total:       toInt(rawMeta["total"]),
		Page:        toInt(rawMeta["page"]),
		PageSize:    toInt(firstPresent(rawMeta, "pageSize", "page_size", "limit")),
		LastUpdated: toInt64(firstPresent(rawMeta, "lastUpdated", "last_updated")),
	}
	if meta.Total <= 0 {
		meta.Total = len(items)
	}
	if meta.Page <= 0 {
		meta.Page = 1
	}
	if meta.PageSize <= 0 {
		meta.PageSize = len(items)
	}
	if meta.LastUpdated <= 0 {
		meta.LastUpdated = now.Unix()
	}

	return model.FahndungenResponse{Meta: meta, Items: items}
}

// NormalizeItems coerces raw decoded JSON items, dropping entries that are not
// objects or have no usable id.
func NormalizeItems(rawItems []any) []model.FahndungItem {
	items := make([]model.FahndungItem, 0, len(rawItems))
	for _, ri := range rawItems {
		m, ok := ri.(map[string]any)
		if !ok {
			continue
		}
		item, ok := normalizeItem(m)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

// unwrapListing finds the items array and meta object in {items, meta},
// {data: {items, meta}}, {data: [...]} or a bare array.
func unwrapListing(raw any) ([]any, map[string]any) {
	switch v := raw.(type) {
	case []any:
		return v, map[string]any{}
	case map[string]any:
		meta, _ := v["meta"].(map[string]any)
		if meta == nil {
			meta = map[string]any{}
		}
		if items, ok := v["items"].([]any); ok {
			return items, meta
		}
		switch data := v["data"].(type) {
		case []any:
			return data, meta
		case map[string]any:
			items, innerMeta := unwrapListing(data)
			if len(meta) == 0 {
				meta = innerMeta
			}
			return items, meta
		}
		return nil, meta
	}
	return nil, map[string]any{}
}

// normalizeItem coerces a single raw item. ok is false when the item has no
// positive numeric id.
func normalizeItem(m map[string]any) (model.FahndungItem, bool) {
	id, err := toInt64E(firstPresent(m, "id", "uid"))
	if err != nil || id <= 0 {
		return model.FahndungItem{}, false
	}

	item := model.FahndungItem{
		ID:          int(id),
		Title:       strings.TrimSpace(cast.ToString(m["title"])),
		Description: strings.TrimSpace(cast.ToString(m["description"])),
		Summary:     strings.TrimSpace(cast.ToString(firstPresent(m, "summary", "teaser"))),
		Status:      normalizeStatus(m["status"]),
		Type:        normalizeType(firstPresent(m, "type", "fahndungType", "category")),
		Location:    strings.TrimSpace(cast.ToString(firstPresent(m, "location", "ort"))),
		Delikt:      strings.TrimSpace(cast.ToString(m["delikt"])),
		PublishedAt: normalizeTimestamp(firstPresent(m, "publishedAt", "published_at", "crdate")),
		Slug:        strings.TrimSpace(cast.ToString(m["slug"])),
		Image:       normalizeImage(m["image"]),
	}
	if item.Description == "" {
		item.Description = item.Summary
	}
	if item.Summary == "" {
		item.Summary = item.Description
	}
	if item.Slug == "" {
		item.Slug = "fahndung-" + strconv.FormatInt(id, 10)
	}
	return item, true
}

func normalizeImage(v any) *model.Image {
	switch img := v.(type) {
	case string:
		if strings.TrimSpace(img) == "" {
			return nil
		}
		return &model.Image{URL: strings.TrimSpace(img)}
	case map[string]any:
		u := strings.TrimSpace(cast.ToString(firstPresent(img, "url", "src", "publicUrl")))
		if u == "" {
			return nil
		}
		return &model.Image{
			URL:         u,
			Alternative: strings.TrimSpace(cast.ToString(firstPresent(img, "alternative", "alt"))),
		}
	case []any:
		if len(img) > 0 {
			return normalizeImage(img[0])
		}
	}
	return nil
}

// normalizeTimestamp keeps string timestamps as sent and renders unix seconds
// as RFC 3339 in UTC.
func normalizeTimestamp(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC().Format(time.RFC3339)
		}
		return s
	default:
		secs, err := cast.ToInt64E(t)
		if err != nil || secs <= 0 {
			return ""
		}
		return time.Unix(secs, 0).UTC().Format(time.RFC3339)
	}
}

// toInt64E reads numeric strings as decimal. cast alone would treat a leading
// zero as an octal prefix.
func toInt64E(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return cast.ToInt64E(v)
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return int64(f), nil
}

func toInt64(v any) int64 {
	n, _ := toInt64E(v)
	return n
}

func toInt(v any) int {
	return int(toInt64(v))
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
