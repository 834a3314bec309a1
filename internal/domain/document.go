package domain

// DocumentMetadata travels with a document and every chunk derived from it.
type DocumentMetadata struct {
	SourceName string `json:"source_name"`
}

// SourceDocument is one file read from the knowledge directory.
type SourceDocument struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// Chunk is a bounded, overlapping segment of a SourceDocument and the unit
// that gets embedded and retrieved.
type Chunk struct {
	ParentDocID   string           `json:"parent_doc_id"`
	Content       string           `json:"content"`
	SequenceIndex int              `json:"sequence_index"`
	Metadata      DocumentMetadata `json:"metadata"`
}

// SourceName is a shorthand for c.Metadata.SourceName.
func (c Chunk) SourceName() string {
	return c.Metadata.SourceName
}
