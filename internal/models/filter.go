package models

// SortKey selects the result ordering.
type SortKey string

const (
	SortTitle  SortKey = "title"
	SortNewest SortKey = "newest"
	SortRating SortKey = "rating"
)

// ParseSortKey maps UI labels onto sort keys, defaulting to title.
func ParseSortKey(raw string) SortKey {
	switch raw {
	case "newest", "Newest":
		return SortNewest
	case "rating", "Highest Rated", "highest_rated":
		return SortRating
	default:
		return SortTitle
	}
}

// ResultTab selects how results are grouped for display.
type ResultTab string

const (
	TabSearch ResultTab = "search"
	TabSaved  ResultTab = "saved"
)

// FilterSelection is the user's current cascading filter tuple. Empty strings mean unset.
type FilterSelection struct {
	Course     string         `json:"course"`
	Instructor string         `json:"instructor"`
	Grade      GradeTier      `json:"grade"`
	Year       string         `json:"year"`
	Tags       []DocumentForm `json:"tags"`
}

// DefaultFilterSelection shows both short and long documents with no other filter.
func DefaultFilterSelection() FilterSelection {
	return FilterSelection{Tags: []DocumentForm{FormShort, FormLong}}
}

// HasTag reports whether the form is part of the active tag set.
func (s FilterSelection) HasTag(form DocumentForm) bool {
	for _, tag := range s.Tags {
		if tag == form {
			return true
		}
	}
	return false
}

// FilterActionType names a filter transition.
type FilterActionType string

const (
	ActionSetCourse     FilterActionType = "setCourse"
	ActionSetInstructor FilterActionType = "setInstructor"
	ActionSetGrade      FilterActionType = "setGrade"
	ActionSetYear       FilterActionType = "setYear"
	ActionToggleTag     FilterActionType = "toggleTag"
	ActionSetTags       FilterActionType = "setTags"
	ActionClearAll      FilterActionType = "clearAll"
)

// FilterAction is one user interaction applied through the filter reducer.
type FilterAction struct {
	Type  FilterActionType `json:"type" validate:"required"`
	Value string           `json:"value"`
	Tags  []DocumentForm   `json:"tags"`
}

// FilterOptions lists the legal values for every filter level.
type FilterOptions struct {
	Courses             []string    `json:"courses"`
	Instructors         []string    `json:"instructors"`
	Years               []string    `json:"years"`
	Grades              []GradeTier `json:"grades"`
	InstructorsDisabled bool        `json:"instructorsDisabled"`
	YearsDisabled       bool        `json:"yearsDisabled"`
	GradesDisabled      bool        `json:"gradesDisabled"`
}

// ResultGroup is one display section of a result list.
type ResultGroup struct {
	Key     string         `json:"key"`
	Entries []CatalogEntry `json:"entries"`
}

// SearchResult bundles everything a results view renders.
type SearchResult struct {
	Kind      ResourceKind    `json:"kind"`
	Selection FilterSelection `json:"selection"`
	Options   FilterOptions   `json:"options"`
	Sort      SortKey         `json:"sort"`
	Total     int             `json:"total"`
	Groups    []ResultGroup   `json:"groups"`
}
