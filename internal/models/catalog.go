package models

import (
	"path"
	"strings"
	"time"
)

// ResourceKind distinguishes the two document catalogs.
type ResourceKind string

const (
	KindOutline ResourceKind = "outline"
	KindExam    ResourceKind = "exam"
)

// ParseResourceKind accepts singular or plural forms ("outlines", "exam").
func ParseResourceKind(raw string) (ResourceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "outline", "outlines":
		return KindOutline, true
	case "exam", "exams":
		return KindExam, true
	default:
		return "", false
	}
}

// GradeTier is the closed set of academic outcomes attached to a document.
type GradeTier string

const (
	GradeDistinction GradeTier = "DS"
	GradeHonors      GradeTier = "H"
	GradePass        GradeTier = "P"
)

// NormalizeGrade maps stored labels onto the closed set. Unknown labels are
// returned trimmed and reported as not known.
func NormalizeGrade(raw string) (GradeTier, bool) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToUpper(trimmed) {
	case "DS", "D", "DISTINCTION":
		return GradeDistinction, true
	case "H", "HP", "HONORS", "HONOURS", "HIGH PASS":
		return GradeHonors, true
	case "P", "PASS":
		return GradePass, true
	default:
		return GradeTier(trimmed), false
	}
}

// Known reports whether the tier belongs to the closed set.
func (g GradeTier) Known() bool {
	return g == GradeDistinction || g == GradeHonors || g == GradePass
}

// GradePriority orders tiers top first; unknown tiers sort last.
func GradePriority(g GradeTier) int {
	switch g {
	case GradeDistinction:
		return 0
	case GradeHonors:
		return 1
	case GradePass:
		return 2
	default:
		return 3
	}
}

// FileType is the closed set of uploadable document formats.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDoc  FileType = "doc"
	FileTypeDocx FileType = "docx"
)

// FileTypeFromName derives the type from an extension or path.
func FileTypeFromName(name string) FileType {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSpace(name))), ".")
	if ext == "" {
		ext = strings.ToLower(strings.TrimSpace(name))
	}
	return FileType(ext)
}

// IsWordFamily reports whether the type renders through the office viewer.
func (f FileType) IsWordFamily() bool {
	return f == FileTypeDoc || f == FileTypeDocx
}

// DocumentForm is the page-count derived classification used as a filter tag.
type DocumentForm string

const (
	FormShort DocumentForm = "short"
	FormLong  DocumentForm = "long"
)

// DefaultShortFormMaxPages is the inclusive page threshold for short-form documents.
const DefaultShortFormMaxPages = 25

// CatalogEntry is one outline or exam as projected from the relational store.
type CatalogEntry struct {
	ID           string       `db:"id" json:"id"`
	Kind         ResourceKind `db:"kind" json:"kind"`
	Title        string       `db:"title" json:"title"`
	Course       string       `db:"course" json:"course"`
	Instructor   string       `db:"instructor" json:"instructor"`
	Year         string       `db:"year" json:"year"`
	Grade        GradeTier    `db:"grade" json:"grade"`
	FileType     FileType     `db:"file_type" json:"fileType"`
	FileSize     int64        `db:"file_size" json:"fileSize"`
	PageCount    *int         `db:"page_count" json:"pageCount,omitempty"`
	FilePath     string       `db:"file_path" json:"-"`
	LegacyPath   *string      `db:"legacy_path" json:"-"`
	Rating       float64      `db:"rating" json:"rating"`
	UploadedBy   *string      `db:"uploaded_by" json:"uploadedBy,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	StoragePaths []string     `db:"-" json:"-"`
}

// Paths returns the candidate storage paths recorded for the entry, primary first.
func (e CatalogEntry) Paths() []string {
	if len(e.StoragePaths) > 0 {
		return e.StoragePaths
	}
	paths := make([]string, 0, 2)
	if e.FilePath != "" {
		paths = append(paths, e.FilePath)
	}
	if e.LegacyPath != nil && *e.LegacyPath != "" && *e.LegacyPath != e.FilePath {
		paths = append(paths, *e.LegacyPath)
	}
	return paths
}

// Form classifies the entry by page count; a missing count is treated as long-form.
func (e CatalogEntry) Form(shortMaxPages int) DocumentForm {
	if shortMaxPages <= 0 {
		shortMaxPages = DefaultShortFormMaxPages
	}
	if e.PageCount != nil && *e.PageCount <= shortMaxPages {
		return FormShort
	}
	return FormLong
}

// Enumerable reports whether the entry carries the fields filtering depends on.
func (e CatalogEntry) Enumerable() bool {
	return strings.TrimSpace(e.Course) != "" && strings.TrimSpace(e.Instructor) != "" && strings.TrimSpace(e.Year) != ""
}
