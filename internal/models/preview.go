package models

import "time"

// Renderer names how the browser should display a document.
type Renderer string

const (
	RendererNative      Renderer = "native"
	RendererOfficeEmbed Renderer = "office_embed"
	RendererUnsupported Renderer = "unsupported"
)

// PreviewState tracks a preview session through lazy activation.
type PreviewState string

const (
	PreviewPending     PreviewState = "pending"
	PreviewResolving   PreviewState = "resolving"
	PreviewReady       PreviewState = "ready"
	PreviewUnavailable PreviewState = "unavailable"
	PreviewRejected    PreviewState = "rejected"
	PreviewUnsupported PreviewState = "unsupported"
	PreviewCancelled   PreviewState = "cancelled"
)

// PreviewSession is the currently selected entry of one viewer pane.
type PreviewSession struct {
	ID         string       `json:"id"`
	EntryID    string       `json:"entryId"`
	Kind       ResourceKind `json:"kind"`
	Title      string       `json:"title"`
	FileType   FileType     `json:"fileType"`
	Renderer   Renderer     `json:"renderer"`
	Visible    bool         `json:"visible"`
	State      PreviewState `json:"state"`
	URL        string       `json:"url,omitempty"`
	EmbedURL   string       `json:"embedUrl,omitempty"`
	Message    string       `json:"message,omitempty"`
	Quota      *QuotaStatus `json:"quota,omitempty"`
	MarginPx   int          `json:"visibilityMarginPx"`
	CreatedAt  time.Time    `json:"createdAt"`
	ResolvedAt *time.Time   `json:"resolvedAt,omitempty"`
}

// ResolvedDocument is a successful resolution of an entry to a display URL.
type ResolvedDocument struct {
	URL      string   `json:"url"`
	EmbedURL string   `json:"embedUrl,omitempty"`
	Path     string   `json:"-"`
	Renderer Renderer `json:"renderer"`
	Attempts int      `json:"attempts"`
}

// DownloadGrant is returned when a download is admitted.
type DownloadGrant struct {
	EntryID  string      `json:"entryId"`
	URL      string      `json:"url"`
	FileName string      `json:"fileName"`
	Quota    QuotaStatus `json:"quota"`
}
