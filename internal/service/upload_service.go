package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/dto"
	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/storage"
)

type uploadObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type catalogWriter interface {
	Add(ctx context.Context, entry *models.CatalogEntry) error
}

type uploadMetrics interface {
	RecordUpload(kind, outcome string)
}

// UploadConfig bounds accepted files.
type UploadConfig struct {
	MaxFileSizeBytes  int64
	AllowedExtensions []string
}

// UploadService stores a document under its classification path and records
// it in the catalog.
type UploadService struct {
	store     uploadObjectStore
	catalog   catalogWriter
	metrics   uploadMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       UploadConfig
	allowed   map[string]struct{}
}

// NewUploadService constructs the service.
func NewUploadService(store uploadObjectStore, catalog catalogWriter, metrics uploadMetrics, validate *validator.Validate, logger *zap.Logger, cfg UploadConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{".pdf", ".doc", ".docx"}
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &UploadService{store: store, catalog: catalog, metrics: metrics, validator: validate, logger: logger, cfg: cfg, allowed: allowed}
}

// Upload validates the request, stores the file, ensures folder placeholders
// and inserts the catalog row. A failed insert removes the stored file.
func (s *UploadService) Upload(ctx context.Context, kind models.ResourceKind, req dto.UploadDocumentRequest, uploaderID string) (*dto.UploadDocumentResponse, error) {
	entry, err := s.validate(kind, req)
	if err != nil {
		s.record(kind, "rejected")
		return nil, err
	}

	key := BuildUploadPath(kind, entry.Course, entry.Instructor, entry.Year, string(entry.Grade), req.FileName, uuid.NewString())
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.store.Put(ctx, key, req.File, req.FileSize, contentType); err != nil {
		s.record(kind, "failed")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	for _, prefix := range folderPrefixes(key) {
		s.ensurePlaceholder(ctx, prefix)
	}

	entry.ID = uuid.NewString()
	entry.FilePath = key
	entry.StoragePaths = []string{key}
	if uploaderID != "" {
		entry.UploadedBy = &uploaderID
	}

	if err := s.catalog.Add(ctx, entry); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to clean up uploaded file after insert error", zap.String("path", key), zap.Error(delErr))
		}
		s.record(kind, "failed")
		return nil, err
	}

	s.record(kind, "stored")
	s.logger.Info("document uploaded", zap.String("kind", string(kind)), zap.String("id", entry.ID), zap.String("path", key))
	return &dto.UploadDocumentResponse{
		ID:       entry.ID,
		Kind:     string(kind),
		Title:    entry.Title,
		Path:     key,
		FileType: string(entry.FileType),
		FileSize: entry.FileSize,
	}, nil
}

func (s *UploadService) validate(kind models.ResourceKind, req dto.UploadDocumentRequest) (*models.CatalogEntry, error) {
	if kind != models.KindOutline && kind != models.KindExam {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown document kind")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}

	if req.File == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file: is required")
	}
	ext := strings.ToLower(path.Ext(req.FileName))
	if _, ok := s.allowed[ext]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file: type is not accepted, upload a PDF or Word document")
	}
	if s.cfg.MaxFileSizeBytes > 0 && req.FileSize > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file: must be at most %d MB", s.cfg.MaxFileSizeBytes/bytesPerMB))
	}
	grade, ok := models.NormalizeGrade(req.Grade)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade: must be one of DS, H, P")
	}

	return &models.CatalogEntry{
		Kind:       kind,
		Title:      strings.TrimSpace(req.Title),
		Course:     strings.TrimSpace(req.Course),
		Instructor: strings.TrimSpace(req.Instructor),
		Year:       strings.TrimSpace(req.Year),
		Grade:      grade,
		FileType:   models.FileTypeFromName(req.FileName),
		FileSize:   req.FileSize,
		PageCount:  req.PageCount,
	}, nil
}

func (s *UploadService) ensurePlaceholder(ctx context.Context, prefix string) {
	key := prefix + "/" + storage.FolderPlaceholder
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		s.logger.Warn("placeholder probe failed", zap.String("key", key), zap.Error(err))
		return
	}
	if exists {
		return
	}
	if err := s.store.Put(ctx, key, bytes.NewReader(nil), 0, "application/octet-stream"); err != nil {
		s.logger.Warn("placeholder write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *UploadService) record(kind models.ResourceKind, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordUpload(string(kind), outcome)
	}
}

// BuildUploadPath returns kind/course/instructor/year/grade/name-suffix.ext with
// every segment slugged.
func BuildUploadPath(kind models.ResourceKind, course, instructor, year, grade, fileName, unique string) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := Slugify(strings.TrimSuffix(path.Base(strings.ReplaceAll(fileName, "\\", "/")), path.Ext(fileName)))
	if base == "" {
		base = "document"
	}
	if len(unique) > 8 {
		unique = unique[:8]
	}
	name := base + "-" + Slugify(unique) + ext
	return strings.Join([]string{
		Slugify(string(kind)),
		pathSegment(course),
		pathSegment(instructor),
		pathSegment(year),
		pathSegment(grade),
		name,
	}, "/")
}

// pathSegment slugs a classification value. Values with nothing sluggable
// (for example non-Latin names) map to a stable name-derived id instead.
func pathSegment(value string) string {
	if slug := Slugify(value); slug != "" {
		return slug
	}
	return "x-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(value))).String()[:8]
}

// Slugify lowercases s and collapses anything outside [a-z0-9] into single dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// folderPrefixes lists every folder above key, shallowest first.
func folderPrefixes(key string) []string {
	parts := strings.Split(key, "/")
	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	return out
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid upload"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := Slugify(fe.Field())
	switch {
	case fe.Field() == "TermsAccepted":
		return "terms: must be accepted"
	case fe.Field() == "FileName" || fe.Field() == "FileSize":
		return "file: is required"
	case fe.Tag() == "required" || fe.Tag() == "notblank":
		return field + ": is required"
	case fe.Tag() == "numeric" || fe.Tag() == "len":
		return field + ": must be a four digit year"
	case fe.Tag() == "max":
		return field + ": is too long"
	default:
		return field + ": is invalid"
	}
}
