package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyvault-api/internal/models"
)

const catalogColumns = `d.id, d.title, d.course, d.instructor, d.year, d.grade, d.file_type, d.file_size,
d.page_count, d.file_path, d.legacy_path, d.uploaded_by, d.created_at, COALESCE(r.score, 0) AS rating`

// CatalogRepository reads and writes the outline and exam tables.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func catalogTable(kind models.ResourceKind) (string, error) {
	switch kind {
	case models.KindOutline:
		return "outlines", nil
	case models.KindExam:
		return "exams", nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", kind)
	}
}

// ListAll returns the full catalog of a kind. Rows missing a course,
// instructor or year are left out; filtering happens in memory.
func (r *CatalogRepository) ListAll(ctx context.Context, kind models.ResourceKind) ([]models.CatalogEntry, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s d
LEFT JOIN document_ratings r ON r.resource_type = $1 AND r.resource_id = d.id
ORDER BY d.title ASC`, catalogColumns, table)

	var entries []models.CatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query, string(kind)); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	enumerable := entries[:0]
	for i := range entries {
		normalizeEntry(&entries[i], kind)
		if entries[i].Enumerable() {
			enumerable = append(enumerable, entries[i])
		}
	}
	return enumerable, nil
}

// FindByID fetches a single entry. sql.ErrNoRows is returned unwrapped when missing.
func (r *CatalogRepository) FindByID(ctx context.Context, kind models.ResourceKind, id string) (*models.CatalogEntry, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s d
LEFT JOIN document_ratings r ON r.resource_type = $1 AND r.resource_id = d.id
WHERE d.id = $2`, catalogColumns, table)

	var entry models.CatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, string(kind), id); err != nil {
		return nil, err
	}
	normalizeEntry(&entry, kind)
	return &entry, nil
}

// Insert stores a newly uploaded entry.
func (r *CatalogRepository) Insert(ctx context.Context, entry *models.CatalogEntry) error {
	table, err := catalogTable(entry.Kind)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, title, course, instructor, year, grade, file_type, file_size, page_count, file_path, uploaded_by, created_at)
VALUES (:id, :title, :course, :instructor, :year, :grade, :file_type, :file_size, :page_count, :file_path, :uploaded_by, :created_at)`, table)
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Vote records a user's vote through the tally procedure and returns the new score.
func (r *CatalogRepository) Vote(ctx context.Context, kind models.ResourceKind, id, userID string, value int) (float64, error) {
	const query = `SELECT tally_document_vote($1, $2, $3, $4)`
	var score float64
	if err := r.db.GetContext(ctx, &score, query, string(kind), id, userID, value); err != nil {
		return 0, fmt.Errorf("tally vote: %w", err)
	}
	return score, nil
}

func normalizeEntry(entry *models.CatalogEntry, kind models.ResourceKind) {
	entry.Kind = kind
	entry.Course = strings.TrimSpace(entry.Course)
	entry.Instructor = strings.TrimSpace(entry.Instructor)
	entry.Year = strings.TrimSpace(entry.Year)
	entry.Grade, _ = models.NormalizeGrade(string(entry.Grade))
	if entry.FileType == "" {
		entry.FileType = models.FileTypeFromName(entry.FilePath)
	}
	entry.StoragePaths = entry.Paths()
}
