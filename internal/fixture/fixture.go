// Package fixture provides the fallback dataset served when the CMS listing is
// unavailable or empty.
package fixture

import (
	"context"

	"fahndungsportal/internal/model"
)

// Loader reads a fallback dataset from some storage.
type Loader interface {
	// Load reads a JSON array of items, optionally gzip-compressed, stored
	// under key.
	Load(ctx context.Context, key string) ([]model.FahndungItem, error)
}

// Builtin returns a fresh copy of the hardcoded fallback dataset.
func Builtin() []model.FahndungItem {
	return []model.FahndungItem{
		{
			ID:          1,
			Title:       "Vermisste Person: Anna M.",
			Description: "Seit dem Abend des 12. März wird die 16-jährige Anna M. vermisst. Sie wurde zuletzt am Hauptbahnhof gesehen.",
			Summary:     "16-jährige Anna M. seit 12. März vermisst.",
			Status:      model.StatusActive,
			Type:        model.TypeMissingPerson,
			Location:    "Stuttgart",
			PublishedAt: "2024-03-13T08:00:00Z",
			Slug:        "vermisste-person-anna-m",
			Image:       &model.Image{URL: "/images/fallback/vermisst-1.jpg", Alternative: "Foto der vermissten Anna M."},
		},
		{
			ID:          2,
			Title:       "Zeugenaufruf nach Verkehrsunfall",
			Description: "Die Polizei sucht Zeugen eines Verkehrsunfalls an der Kreuzung Neckarstraße / Schillerstraße.",
			Summary:     "Zeugen eines Verkehrsunfalls gesucht.",
			Status:      model.StatusActive,
			Type:        model.TypeWitnessAppeal,
			Location:    "Heilbronn",
			Delikt:      "Verkehrsunfallflucht",
			PublishedAt: "2024-03-10T14:30:00Z",
			Slug:        "zeugenaufruf-verkehrsunfall",
		},
		{
			ID:          3,
			Title:       "Fahndung nach Tatverdächtigem eines Raubüberfalls",
			Description: "Nach einem Raubüberfall auf eine Tankstelle fahndet die Polizei nach einem etwa 30-jährigen Mann.",
			Summary:     "Tatverdächtiger nach Tankstellenüberfall gesucht.",
			Status:      model.StatusActive,
			Type:        model.TypeWanted,
			Location:    "Karlsruhe",
			Delikt:      "Raub",
			PublishedAt: "2024-03-08T09:15:00Z",
			Slug:        "fahndung-raubueberfall-tankstelle",
			Image:       &model.Image{URL: "/images/fallback/fahndung-3.jpg", Alternative: "Aufnahme der Überwachungskamera"},
		},
		{
			ID:          4,
			Title:       "Betrug mit falschen Polizeibeamten",
			Description: "Unbekannte gaben sich am Telefon als Polizeibeamte aus und erbeuteten Bargeld und Schmuck.",
			Summary:     "Hinweise zu Betrügern gesucht.",
			Status:      model.StatusActive,
			Type:        model.TypeWanted,
			Location:    "Freiburg",
			Delikt:      "Betrug",
			PublishedAt: "2024-03-05T11:00:00Z",
			Slug:        "betrug-falsche-polizeibeamte",
		},
		{
			ID:          5,
			Title:       "Vermisster Senior wohlbehalten aufgefunden",
			Description: "Der seit Sonntag vermisste 82-jährige Mann wurde wohlbehalten aufgefunden. Die Polizei bedankt sich für die Hinweise.",
			Summary:     "82-jähriger Mann wohlbehalten aufgefunden.",
			Status:      model.StatusCompleted,
			Type:        model.TypeMissingPerson,
			Location:    "Ulm",
			PublishedAt: "2024-02-28T16:45:00Z",
			Slug:        "vermisster-senior-aufgefunden",
		},
		{
			ID:          6,
			Title:       "Einbruchserie in Wohngebiet",
			Description: "Im Zusammenhang mit mehreren Wohnungseinbrüchen bittet die Kriminalpolizei um Hinweise aus der Bevölkerung.",
			Summary:     "Hinweise zu Wohnungseinbrüchen erbeten.",
			Status:      model.StatusArchived,
			Type:        model.TypeWitnessAppeal,
			Location:    "Mannheim",
			Delikt:      "Wohnungseinbruchdiebstahl",
			PublishedAt: "2024-01-20T10:00:00Z",
			Slug:        "einbruchserie-wohngebiet",
		},
	}
}
