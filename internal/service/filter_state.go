package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

// ApplyFilterAction is the single transition function for filter state. It
// returns the next selection or a validation error leaving state untouched.
// Setting a level clears every level below it; an empty value clears the level.
func ApplyFilterAction(state models.FilterSelection, action models.FilterAction, catalog []models.CatalogEntry) (models.FilterSelection, error) {
	next := cloneSelection(state)
	value := strings.TrimSpace(action.Value)

	switch action.Type {
	case models.ActionClearAll:
		return models.DefaultFilterSelection(), nil

	case models.ActionSetCourse:
		if value != "" {
			opts := DeriveFilterOptions(catalog, models.FilterSelection{})
			if !containsString(opts.Courses, value) {
				return state, illegalValue("course", value)
			}
		}
		next.Course = value
		next.Instructor = ""
		next.Grade = ""
		next.Year = ""

	case models.ActionSetInstructor:
		if value != "" {
			if next.Course == "" {
				return state, appErrors.Clone(appErrors.ErrValidation, "select a course before an instructor")
			}
			opts := DeriveFilterOptions(catalog, models.FilterSelection{Course: next.Course})
			if !containsString(opts.Instructors, value) {
				return state, illegalValue("instructor", value)
			}
		}
		next.Instructor = value
		next.Grade = ""
		next.Year = ""

	case models.ActionSetYear:
		if value != "" {
			if next.Course == "" || next.Instructor == "" {
				return state, appErrors.Clone(appErrors.ErrValidation, "select a course and instructor before a year")
			}
			opts := DeriveFilterOptions(catalog, models.FilterSelection{Course: next.Course, Instructor: next.Instructor})
			if !containsString(opts.Years, value) {
				return state, illegalValue("year", value)
			}
		}
		next.Year = value
		if next.Grade != "" && !gradeLegal(catalog, next) {
			next.Grade = ""
		}

	case models.ActionSetGrade:
		grade := models.GradeTier(value)
		if value != "" {
			if next.Course == "" || next.Instructor == "" {
				return state, appErrors.Clone(appErrors.ErrValidation, "select a course and instructor before a grade")
			}
			normalized, ok := models.NormalizeGrade(value)
			if !ok {
				return state, illegalValue("grade", value)
			}
			grade = normalized
			next.Grade = grade
			if !gradeLegal(catalog, next) {
				return state, illegalValue("grade", value)
			}
		}
		next.Grade = grade

	case models.ActionToggleTag:
		form := models.DocumentForm(value)
		if form != models.FormShort && form != models.FormLong {
			return state, illegalValue("tag", value)
		}
		if next.HasTag(form) {
			tags := next.Tags[:0]
			for _, tag := range next.Tags {
				if tag != form {
					tags = append(tags, tag)
				}
			}
			next.Tags = tags
		} else {
			next.Tags = append(next.Tags, form)
		}

	case models.ActionSetTags:
		tags := make([]models.DocumentForm, 0, len(action.Tags))
		for _, form := range action.Tags {
			if form != models.FormShort && form != models.FormLong {
				return state, illegalValue("tag", string(form))
			}
			if !containsForm(tags, form) {
				tags = append(tags, form)
			}
		}
		next.Tags = tags

	default:
		return state, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown filter action %q", action.Type))
	}

	return next, nil
}

// ReconcileFilterSelection drops any level that is no longer legal against the
// catalog, walking course, instructor, year, then grade. A dropped level takes
// its descendants with it.
func ReconcileFilterSelection(state models.FilterSelection, catalog []models.CatalogEntry) models.FilterSelection {
	next := cloneSelection(state)

	opts := DeriveFilterOptions(catalog, models.FilterSelection{})
	if next.Course == "" || !containsString(opts.Courses, next.Course) {
		next.Course = ""
		next.Instructor = ""
		next.Year = ""
		next.Grade = ""
	}

	if next.Instructor != "" {
		opts = DeriveFilterOptions(catalog, models.FilterSelection{Course: next.Course})
		if !containsString(opts.Instructors, next.Instructor) {
			next.Instructor = ""
		}
	}
	if next.Instructor == "" {
		next.Year = ""
		next.Grade = ""
	}

	if next.Year != "" {
		opts = DeriveFilterOptions(catalog, models.FilterSelection{Course: next.Course, Instructor: next.Instructor})
		if !containsString(opts.Years, next.Year) {
			next.Year = ""
		}
	}

	if next.Grade != "" && !gradeLegal(catalog, next) {
		next.Grade = ""
	}

	if next.Tags == nil {
		next.Tags = []models.DocumentForm{}
	}
	return next
}

// gradeLegal accepts only closed-set tiers present under the selection's ancestors.
func gradeLegal(catalog []models.CatalogEntry, selection models.FilterSelection) bool {
	if !selection.Grade.Known() {
		return false
	}
	opts := DeriveFilterOptions(catalog, models.FilterSelection{
		Course:     selection.Course,
		Instructor: selection.Instructor,
		Year:       selection.Year,
	})
	return containsGrade(opts.Grades, selection.Grade)
}

func cloneSelection(s models.FilterSelection) models.FilterSelection {
	out := s
	out.Tags = append([]models.DocumentForm(nil), s.Tags...)
	return out
}

func containsForm(values []models.DocumentForm, target models.DocumentForm) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func illegalValue(field, value string) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s %q is not available for the current selection", field, value))
}
