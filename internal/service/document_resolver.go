package service

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
	"github.com/noah-isme/studyvault-api/pkg/storage"
)

const defaultSignedURLTTL = time.Hour

type urlSigner interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type activityNotifier interface {
	Notify(event models.ActivityEvent)
}

type resolverMetrics interface {
	RecordResolverAttempt(outcome string)
}

// ResolverConfig tunes path probing and renderer selection.
type ResolverConfig struct {
	LegacyPrefixes  []string
	SignedURLTTL    time.Duration
	OfficeViewerURL string
}

// DocumentResolver turns a catalog entry into a signed URL by probing its
// candidate storage paths in order.
type DocumentResolver struct {
	signer   urlSigner
	tracker  activityNotifier
	metrics  resolverMetrics
	logger   *zap.Logger
	cfg      ResolverConfig
	prefixes []string
}

// NewDocumentResolver constructs a resolver. tracker and metrics may be nil.
func NewDocumentResolver(signer urlSigner, tracker activityNotifier, metrics resolverMetrics, logger *zap.Logger, cfg ResolverConfig) *DocumentResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedURLTTL
	}
	prefixes := make([]string, 0, len(cfg.LegacyPrefixes))
	for _, p := range cfg.LegacyPrefixes {
		if cleaned := storage.CleanKey(p); cleaned != "" {
			prefixes = append(prefixes, cleaned+"/")
		}
	}
	return &DocumentResolver{signer: signer, tracker: tracker, metrics: metrics, logger: logger, cfg: cfg, prefixes: prefixes}
}

// SelectRenderer maps a file type onto the viewer that can display it.
func SelectRenderer(fileType models.FileType) models.Renderer {
	switch {
	case fileType == models.FileTypePDF:
		return models.RendererNative
	case fileType.IsWordFamily():
		return models.RendererOfficeEmbed
	default:
		return models.RendererUnsupported
	}
}

// CandidatePaths lists the keys worth probing for an entry: stored paths, the
// same paths without a legacy prefix, bare filenames, then the paths with each
// legacy prefix added. Duplicates keep their first position.
func CandidatePaths(stored []string, legacyPrefixes []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(stored)*(2+len(legacyPrefixes)))
	add := func(p string) {
		p = storage.CleanKey(p)
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	cleaned := make([]string, 0, len(stored))
	for _, p := range stored {
		if c := storage.CleanKey(p); c != "" {
			cleaned = append(cleaned, c)
		}
	}

	for _, p := range cleaned {
		add(p)
	}
	for _, p := range cleaned {
		for _, prefix := range legacyPrefixes {
			if strings.HasPrefix(p, prefix) {
				add(strings.TrimPrefix(p, prefix))
			}
		}
	}
	for _, p := range cleaned {
		add(path.Base(p))
	}
	for _, p := range cleaned {
		for _, prefix := range legacyPrefixes {
			if !strings.HasPrefix(p, prefix) {
				add(prefix + p)
			}
		}
	}
	return out
}

// Candidates returns the probe list for the entry using the configured prefixes.
func (r *DocumentResolver) Candidates(entry models.CatalogEntry) []string {
	return CandidatePaths(entry.Paths(), r.prefixes)
}

// Resolve signs the first candidate path that exists. Candidates are tried one
// at a time and none are tried after the first success. On success the
// activity tracker is notified without waiting on it.
func (r *DocumentResolver) Resolve(ctx context.Context, entry models.CatalogEntry, actor models.Actor, action models.ActivityAction) (models.ResolvedDocument, error) {
	renderer := SelectRenderer(entry.FileType)
	if renderer == models.RendererUnsupported && action == models.ActivityPreview {
		return models.ResolvedDocument{Renderer: renderer}, appErrors.ErrUnsupportedFileType
	}

	candidates := r.Candidates(entry)
	attempts := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return models.ResolvedDocument{}, err
		}
		attempts++
		signed, err := r.signer.SignedURL(ctx, candidate, r.cfg.SignedURLTTL)
		if err != nil {
			r.recordAttempt("miss")
			r.logger.Debug("candidate path did not resolve",
				zap.String("entry_id", entry.ID),
				zap.String("path", candidate),
				zap.Error(err))
			continue
		}
		r.recordAttempt("hit")

		doc := models.ResolvedDocument{URL: signed, Path: candidate, Renderer: renderer, Attempts: attempts}
		if renderer == models.RendererOfficeEmbed {
			doc.EmbedURL = r.cfg.OfficeViewerURL + url.QueryEscape(signed)
		}
		r.notify(entry, actor, action)
		return doc, nil
	}

	r.logger.Warn("document unavailable",
		zap.String("entry_id", entry.ID),
		zap.Int("attempts", attempts))
	return models.ResolvedDocument{}, appErrors.ErrDocumentUnavailable
}

func (r *DocumentResolver) notify(entry models.CatalogEntry, actor models.Actor, action models.ActivityAction) {
	if r.tracker == nil {
		return
	}
	r.tracker.Notify(models.ActivityEvent{
		UserID:        actor.UserID,
		ResourceType:  entry.Kind,
		ResourceID:    entry.ID,
		ResourceTitle: entry.Title,
		FileType:      entry.FileType,
		FileSize:      entry.FileSize,
		Action:        action,
		SessionID:     actor.SessionID,
		UserAgent:     actor.UserAgent,
	})
}

func (r *DocumentResolver) recordAttempt(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordResolverAttempt(outcome)
	}
}
