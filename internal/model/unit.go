package model

// RawRecord is one scraped page as it appears in the corpus file
type RawRecord struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// ContextUnit is a cleaned, titled piece of source content eligible for retrieval
type ContextUnit struct {
	SectionName string `json:"section_name"` // Title derived from the URL path
	SourceURL   string `json:"source_url"`
	Content     string `json:"content"` // "<Title>\n" + cleaned text
}

// Chunk is a bounded span of a ContextUnit's content, the unit actually embedded and searched
type Chunk struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"` // Insertion order, used to break score ties
	SectionName string    `json:"section_name"`
	SourceURL   string    `json:"source_url"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"-"`
}

// Unit reconstitutes the retrievable ContextUnit from a stored chunk
func (c Chunk) Unit() ContextUnit {
	return ContextUnit{
		SectionName: c.SectionName,
		SourceURL:   c.SourceURL,
		Content:     c.Content,
	}
}

// ChatRequest is the inbound question
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is the structured answer returned by the generation client
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}
