package models

// FilePart is one file of a multipart upload.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Content     []byte
}

// Multipart is a form upload: plain fields plus files. Requests carrying it
// are sent as multipart/form-data instead of JSON.
type Multipart struct {
	Fields map[string]string
	Files  []FilePart
}
