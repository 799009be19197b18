package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/textbook-vault/internal/domain"
)

// ChunkConfig controls how page text is split before embedding.
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
	// Separators are tried in order; "" splits into single characters.
	Separators []string
}

// DefaultSeparators splits on paragraphs, then lines, then words, then characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// DefaultChunkConfig provides the textbook chunking defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    600,
		ChunkOverlap: 100,
		Separators:   DefaultSeparators,
	}
}

// PageChunk is a chunk of text together with the zero-based index of the page it came from.
type PageChunk struct {
	PageIndex int
	Text      string
}

// RecursiveSplitter splits text on the highest-priority separator present and recurses with
// lower-priority separators on pieces that are still too long. Lengths are counted in runes.
type RecursiveSplitter struct {
	cfg ChunkConfig
}

// NewRecursiveSplitter validates cfg and returns a splitter for it.
func NewRecursiveSplitter(cfg ChunkConfig) (*RecursiveSplitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidChunkConfig, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap cannot be negative, got %d", domain.ErrInvalidChunkConfig, cfg.ChunkOverlap)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			domain.ErrInvalidChunkConfig, cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultSeparators
	}
	return &RecursiveSplitter{cfg: cfg}, nil
}

// Config returns the splitter configuration.
func (s *RecursiveSplitter) Config() ChunkConfig {
	return s.cfg
}

// SplitPages splits every page independently so no chunk spans two pages.
func (s *RecursiveSplitter) SplitPages(pages []domain.Page) []PageChunk {
	var out []PageChunk
	for _, page := range pages {
		for _, text := range s.SplitText(page.Text) {
			out = append(out, PageChunk{PageIndex: page.Index, Text: text})
		}
	}
	return out
}

// SplitText splits text into chunks of at most ChunkSize runes. A single piece that cannot be
// split any further by the configured separators may exceed it.
func (s *RecursiveSplitter) SplitText(text string) []string {
	return s.split(text, s.cfg.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	var final []string

	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.cfg.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}

	return final
}

// merge packs pieces greedily into chunks, carrying up to ChunkOverlap runes of the previous
// chunk's tail into the next one. Pieces already carry their separators.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.cfg.ChunkSize {
			if len(current) > 0 {
				if doc, ok := joinChunk(current); ok {
					docs = append(docs, doc)
				}
				for total > s.cfg.ChunkOverlap || (total+n > s.cfg.ChunkSize && total > 0) {
					total -= runeLen(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += n
	}

	if doc, ok := joinChunk(current); ok {
		docs = append(docs, doc)
	}
	return docs
}

func joinChunk(pieces []string) (string, bool) {
	text := strings.TrimSpace(strings.Join(pieces, ""))
	return text, text != ""
}

// splitKeepingSeparator splits text on sep, attaching each separator to the start of the
// piece that follows it, and drops empty pieces. An empty sep yields single characters.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, part := range parts[1:] {
		pieces = append(pieces, sep+part)
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
