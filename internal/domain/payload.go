package domain

import "io"

// Payload is the multipart content of one submission. It is opaque to everything but
// the encoder: whatever fields the host form defines are forwarded as-is, and the
// analysis service decides whether the set of files is complete.
type Payload struct {
	Fields []FormField `validate:"dive"`
	Files  []FilePart  `validate:"dive"`
}

type FormField struct {
	Name  string `validate:"required"`
	Value string
}

type FilePart struct {
	Field       string `validate:"required"`
	Filename    string `validate:"required"`
	ContentType string
	Open        func() (io.ReadCloser, error) `validate:"required"`
}
