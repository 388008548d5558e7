package models

// Status records whether any source adapter produced a match for a book.
type Status string

const (
	StatusFound   Status = "FOUND"
	StatusMissing Status = "MISSING"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusFound || s == StatusMissing
}

// RawRecord is one row of the local catalogue as read from the input file.
type RawRecord struct {
	RecordID       string `json:"record_id,omitempty" parquet:"record_id,optional"`
	Title          string `json:"title" parquet:"title,optional"`
	Author         string `json:"author" parquet:"author,optional"`
	ISBN           string `json:"isbn" parquet:"isbn,optional"`
	AccessionNo    string `json:"accession_no" parquet:"accession_no,optional"`
	ClassNoBookNo  string `json:"class_no_book_no" parquet:"class_no_book_no,optional"`
	Pages          string `json:"pages" parquet:"pages,optional"`
	Date           string `json:"date,omitempty" parquet:"date,optional"`
	EditionVolume  string `json:"edition_volume,omitempty" parquet:"edition_volume,optional"`
	PlacePublisher string `json:"place_publisher,omitempty" parquet:"place_publisher,optional"`
	Year           *int   `json:"year,omitempty" parquet:"year,optional"`
	Source         string `json:"source,omitempty" parquet:"source,optional"`
}

// Match is the metadata a source adapter found for a query. Nil fields were
// not present in the upstream response.
type Match struct {
	Method    string
	Authors   []string
	Subjects  []string
	Summary   *string
	Publisher *string
	Year      *int
	Pages     *string
}

// EnrichmentResult is the append-only outcome of enriching one book_key.
type EnrichmentResult struct {
	RecordID       string   `json:"record_id"`
	BookKey        string   `json:"book_key"`
	Status         Status   `json:"status"`
	MatchMethod    *string  `json:"match_method"`
	AccessionNo    string   `json:"accession_no"`
	ClassNoBookNo  string   `json:"class_no_book_no"`
	Pages          *string  `json:"pages"`
	Title          string   `json:"title"`
	OriginalAuthor string   `json:"original_author"`
	ISBN           *string  `json:"isbn"`
	Authors        []string `json:"authors"`
	Subjects       []string `json:"subjects"`
	Summary        *string  `json:"summary"`
	Publisher      *string  `json:"publisher"`
	Year           *int     `json:"year"`
}

// Candidate is a book under consideration for one recommendation request.
type Candidate struct {
	RecordID       string   `json:"record_id"`
	RetrievalScore float64  `json:"retrieval_score"`
	RerankScore    *float64 `json:"rerank_score,omitempty"`
	DepthScore     float64  `json:"depth_score"`
	SummaryBonus   float64  `json:"summary_bonus"`
	FinalScore     float64  `json:"final_score"`
}

// Book is a stored record as served to clients.
type Book struct {
	RecordID      string   `json:"record_id"`
	BookKey       string   `json:"book_key"`
	Status        Status   `json:"status"`
	AccessionNo   string   `json:"accession_no,omitempty"`
	ClassNoBookNo string   `json:"class_no_book_no,omitempty"`
	Pages         string   `json:"pages,omitempty"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	ISBN          string   `json:"isbn,omitempty"`
	Year          *int     `json:"year,omitempty"`
	Subjects      []string `json:"subjects"`
	Summary       string   `json:"summary,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
