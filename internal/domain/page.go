package domain

// Page is the extracted text of one document page.
type Page struct {
	Index int // zero-based
	Text  string
}
