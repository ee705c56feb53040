package schema

// Document is a unit of retrievable content: a chunk of text plus
// whatever metadata and embedding a loader, splitter, or store attached
// to it. Score is populated by retrieval and ranking stages; it is
// meaningless on a document that has not been scored.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Score     float64
	Embedding []float32
}
