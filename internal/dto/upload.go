package dto

import "io"

// UploadDocumentRequest carries the classification fields and file of an upload.
type UploadDocumentRequest struct {
	Title         string `form:"title" validate:"required,notblank,max=200"`
	Course        string `form:"course" validate:"required,notblank,max=120"`
	Instructor    string `form:"instructor" validate:"required,notblank,max=120"`
	Year          string `form:"year" validate:"required,numeric,len=4"`
	Grade         string `form:"grade" validate:"required"`
	PageCount     *int   `form:"page_count" validate:"omitempty,min=1,max=5000"`
	TermsAccepted bool   `form:"terms_accepted" validate:"required"`

	FileName    string    `form:"-" validate:"required"`
	FileSize    int64     `form:"-" validate:"gt=0"`
	ContentType string    `form:"-"`
	File        io.Reader `form:"-"`
}

// UploadDocumentResponse describes the stored document.
type UploadDocumentResponse struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Path     string `json:"path"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}
