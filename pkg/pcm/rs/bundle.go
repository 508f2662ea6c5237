package rs

import (
	"encoding/json"
	"net/http"

	"github.com/hdxil/pcm-core/pkg/store"
)

// writeBundle renders a FHIR-style searchset Bundle, matching entries first
// and included entries appended after (spec §4.2 "Search semantics": "the
// search result is a Bundle whose entries carry search.mode in
// {match, include}").
func writeBundle(w http.ResponseWriter, matches []store.BundleEntry, includes []store.BundleEntry) {
	entries := make([]store.BundleEntry, 0, len(matches)+len(includes))
	entries = append(entries, matches...)
	entries = append(entries, includes...)

	b := store.Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        len(matches),
		Entry:        entries,
	}
	writeJSON(w, http.StatusOK, b)
}

func matchEntries[T any](items []T) []store.BundleEntry {
	out := make([]store.BundleEntry, 0, len(items))
	for _, it := range items {
		out = append(out, store.BundleEntry{Resource: it, SearchMode: "match"})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/fhir+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
