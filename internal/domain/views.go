package domain

// SourceView is the raw text of a tool script, optionally highlighted.
type SourceView struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	HTML     string `json:"html,omitempty"`
	Size     int64  `json:"size"`
	SizeText string `json:"sizeText"`
}

// GuideView describes a tool's guide document. Content and HTML are only
// filled for text formats.
type GuideView struct {
	Path    string `json:"path"`
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
	HTML    string `json:"html,omitempty"`
}
