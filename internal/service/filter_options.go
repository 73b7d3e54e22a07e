package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/studyvault-api/internal/models"
)

// DeriveFilterOptions computes the legal values for every filter level given
// the current selection. Each level is narrowed by its ancestors only.
func DeriveFilterOptions(catalog []models.CatalogEntry, selection models.FilterSelection) models.FilterOptions {
	courses := make(map[string]struct{})
	instructors := make(map[string]struct{})
	years := make(map[string]struct{})
	grades := make(map[models.GradeTier]struct{})

	for _, entry := range catalog {
		if entry.Course != "" {
			courses[entry.Course] = struct{}{}
		}

		if selection.Course != "" && entry.Course != selection.Course {
			continue
		}
		if entry.Instructor != "" {
			instructors[entry.Instructor] = struct{}{}
		}

		if selection.Course != "" && selection.Instructor != "" && entry.Instructor != selection.Instructor {
			continue
		}
		if entry.Year != "" {
			years[entry.Year] = struct{}{}
		}

		if selection.Year != "" && entry.Year != selection.Year {
			continue
		}
		if entry.Grade != "" {
			grades[entry.Grade] = struct{}{}
		}
	}

	opts := models.FilterOptions{
		Courses:     sortedKeys(courses),
		Instructors: sortedKeys(instructors),
		Years:       make([]string, 0, len(years)),
		Grades:      make([]models.GradeTier, 0, len(grades)),
	}
	for year := range years {
		opts.Years = append(opts.Years, year)
	}
	SortYearsDescending(opts.Years)
	for grade := range grades {
		opts.Grades = append(opts.Grades, grade)
	}
	SortGrades(opts.Grades)

	opts.InstructorsDisabled = len(opts.Instructors) == 0
	opts.YearsDisabled = len(opts.Years) == 0
	opts.GradesDisabled = len(opts.Grades) == 0
	return opts
}

// SortYearsDescending orders years newest first. Non-numeric years follow the
// numeric ones in reverse lexical order.
func SortYearsDescending(years []string) {
	sort.SliceStable(years, func(i, j int) bool {
		return compareYears(years[i], years[j]) > 0
	})
}

// SortGrades orders grade tiers DS, H, P, then unknown tiers ascending.
func SortGrades(grades []models.GradeTier) {
	sort.SliceStable(grades, func(i, j int) bool {
		pi, pj := models.GradePriority(grades[i]), models.GradePriority(grades[j])
		if pi != pj {
			return pi < pj
		}
		return grades[i] < grades[j]
	})
}

// compareYears returns >0 when a is newer than b.
func compareYears(a, b string) int {
	na, errA := strconv.Atoi(strings.TrimSpace(a))
	nb, errB := strconv.Atoi(strings.TrimSpace(b))
	switch {
	case errA == nil && errB == nil:
		return na - nb
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsGrade(values []models.GradeTier, target models.GradeTier) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
