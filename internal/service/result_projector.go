package service

import (
	"sort"

	"github.com/noah-isme/studyvault-api/internal/models"
)

// ProjectResults returns the entries visible under the selection, sorted by
// key. Nothing is returned until both course and instructor are chosen.
func ProjectResults(catalog []models.CatalogEntry, selection models.FilterSelection, sortKey models.SortKey, hidden map[string]struct{}, shortMaxPages int) []models.CatalogEntry {
	if selection.Course == "" || selection.Instructor == "" {
		return []models.CatalogEntry{}
	}

	out := make([]models.CatalogEntry, 0)
	for _, entry := range catalog {
		if entry.Course != selection.Course || entry.Instructor != selection.Instructor {
			continue
		}
		if selection.Grade != "" && (!entry.Grade.Known() || entry.Grade != selection.Grade) {
			continue
		}
		if selection.Year != "" && entry.Year != selection.Year {
			continue
		}
		if !selection.HasTag(entry.Form(shortMaxPages)) {
			continue
		}
		if _, isHidden := hidden[entry.ID]; isHidden {
			continue
		}
		out = append(out, entry)
	}

	SortEntries(out, sortKey)
	return out
}

// ProjectSaved returns the saved entries of the catalog in title order,
// skipping ids that no longer exist.
func ProjectSaved(catalog []models.CatalogEntry, saved map[string]struct{}) []models.CatalogEntry {
	out := make([]models.CatalogEntry, 0, len(saved))
	for _, entry := range catalog {
		if _, ok := saved[entry.ID]; ok {
			out = append(out, entry)
		}
	}
	SortEntries(out, models.SortTitle)
	return out
}

// SortEntries orders entries in place; all orderings are stable.
func SortEntries(entries []models.CatalogEntry, key models.SortKey) {
	switch key {
	case models.SortRating:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Rating > entries[j].Rating
		})
	case models.SortNewest:
		sort.SliceStable(entries, func(i, j int) bool {
			return compareYears(entries[i].Year, entries[j].Year) > 0
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Title < entries[j].Title
		})
	}
}

// GroupResults splits a sorted list into display sections. The search tab
// groups by year newest first; the saved tab groups by course ascending.
// Entries inside a group keep their relative order except for grade priority.
func GroupResults(entries []models.CatalogEntry, tab models.ResultTab) []models.ResultGroup {
	keyOf := func(e models.CatalogEntry) string { return e.Year }
	if tab == models.TabSaved {
		keyOf = func(e models.CatalogEntry) string { return e.Course }
	}

	index := make(map[string]int)
	groups := make([]models.ResultGroup, 0)
	for _, entry := range entries {
		key := keyOf(entry)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, models.ResultGroup{Key: key})
		}
		groups[pos].Entries = append(groups[pos].Entries, entry)
	}

	if tab == models.TabSaved {
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	} else {
		sort.SliceStable(groups, func(i, j int) bool { return compareYears(groups[i].Key, groups[j].Key) > 0 })
	}

	for i := range groups {
		members := groups[i].Entries
		sort.SliceStable(members, func(a, b int) bool {
			return models.GradePriority(members[a].Grade) < models.GradePriority(members[b].Grade)
		})
	}
	return groups
}
