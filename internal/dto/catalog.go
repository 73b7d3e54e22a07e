package dto

// VoteRequest is an up (1) or down (-1) vote on a document.
type VoteRequest struct {
	Value int `json:"value" validate:"required,oneof=1 -1"`
}

// VoteResponse returns the document's new score.
type VoteResponse struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// ToggleResponse reports set membership after a toggle.
type ToggleResponse struct {
	ID     string `json:"id"`
	Member bool   `json:"member"`
}

// PreviewVisibleRequest is sent when a viewer pane scrolls into view.
type PreviewVisibleRequest struct {
	Pane string `json:"pane"`
}
