// Package chunker splits extracted document text into bounded, overlapping
// retrieval units.
package chunker

import (
	"log/slog"
	"strings"

	"github.com/poiesic/documind/core"
)

// Default chunking parameters, in words.
const (
	DefaultMaxSize = 512
	DefaultOverlap = 50
	DefaultMinSize = 50
)

// oversizeFactor triggers the sliding-window fallback: if any paragraph
// chunk exceeds maxSize * oversizeFactor words, the whole document is
// re-chunked with a fixed window.
const oversizeFactor = 1.5

// Chunker splits document text into chunks. Sizes are measured in words.
// A Chunker is immutable and safe for concurrent use.
type Chunker struct {
	maxSize int
	overlap int
	minSize int
	logger  *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxSize sets the maximum chunk size in words.
func WithMaxSize(size int) Option {
	return func(c *Chunker) {
		c.maxSize = size
	}
}

// WithOverlap sets the overlap between consecutive chunks in words.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// WithMinSize sets the minimum chunk size in words. Chunks below this
// size carry too little context to be independently retrievable and are
// dropped.
func WithMinSize(size int) Option {
	return func(c *Chunker) {
		c.minSize = size
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// New creates a Chunker. Parameters are validated; overlap must be
// strictly smaller than max size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		maxSize: DefaultMaxSize,
		overlap: DefaultOverlap,
		minSize: DefaultMinSize,
		logger:  slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := core.ValidateChunkParams(c.maxSize, c.overlap, c.minSize); err != nil {
		return nil, err
	}
	return c, nil
}

// Chunk splits text into chunks for the given document. The primary
// strategy packs paragraphs greedily up to the max size, carrying an
// overlap tail between chunks. If that produces a chunk beyond 1.5x the
// max size the whole text is re-chunked with a fixed sliding window.
// Deterministic: identical input always yields identical chunks.
func (c *Chunker) Chunk(docID, text string) ([]core.Chunk, error) {
	if err := core.ValidateDocumentID(docID); err != nil {
		return nil, err
	}
	if err := core.ValidateText(text); err != nil {
		return nil, err
	}

	chunks := c.chunkByParagraphs(docID, text)

	for _, ch := range chunks {
		if float64(ch.WordCount) > float64(c.maxSize)*oversizeFactor {
			c.logger.Debug("oversized chunk, re-chunking with sliding window",
				"doc", docID, "words", ch.WordCount, "maxSize", c.maxSize)
			chunks = c.chunkByWindow(docID, text)
			break
		}
	}

	kept := chunks[:0]
	for _, ch := range chunks {
		if ch.WordCount < c.minSize {
			continue
		}
		kept = append(kept, ch)
	}

	// Renumber after filtering so ordinals stay dense.
	for i := range kept {
		kept[i].Ordinal = i
		kept[i].Id = core.ChunkID(docID, i)
		kept[i].Position = float64(i) / float64(len(kept))
	}
	return kept, nil
}

// paragraph is a blank-line delimited block of source text with its
// character offsets.
type paragraph struct {
	text  string
	start int
	end   int
}

// splitParagraphs splits text on blank lines, recording offsets into the
// source. Whitespace-only blocks are skipped.
func splitParagraphs(text string) []paragraph {
	var paras []paragraph
	offset := 0
	for _, block := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(block)
		if trimmed != "" {
			lead := strings.Index(block, trimmed[:1])
			start := offset + lead
			paras = append(paras, paragraph{
				text:  trimmed,
				start: start,
				end:   start + len(trimmed),
			})
		}
		offset += len(block) + 2
	}
	return paras
}

// chunkByParagraphs packs paragraphs greedily into chunks of at most
// maxSize words, starting each new chunk with the previous chunk's
// overlap tail.
func (c *Chunker) chunkByParagraphs(docID, text string) []core.Chunk {
	paras := splitParagraphs(text)
	if len(paras) == 0 {
		return nil
	}

	var chunks []core.Chunk

	var parts []string  // paragraph texts (and a leading tail) in the current buffer
	var bufWords int    // running word count of the buffer
	var bufStart int    // source offset of the first exact part
	var bufEnd int      // source offset past the last paragraph
	var bufApprox bool  // buffer begins with an overlap tail

	flush := func() {
		if len(parts) == 0 {
			return
		}
		body := strings.Join(parts, "\n\n")
		chunks = append(chunks, core.Chunk{
			DocumentID:    docID,
			Text:          body,
			StartChar:     bufStart,
			EndChar:       bufEnd,
			WordCount:     bufWords,
			Method:        core.ChunkMethodParagraph,
			ApproxOffsets: bufApprox,
		})
	}

	for _, para := range paras {
		words := len(strings.Fields(para.text))
		if len(parts) > 0 && bufWords+words > c.maxSize {
			tail := overlapTail(strings.Join(parts, "\n\n"), c.overlap)
			flush()
			parts = parts[:0]
			bufWords = 0
			bufApprox = false
			if tail != "" {
				parts = append(parts, tail)
				bufWords = len(strings.Fields(tail))
				bufApprox = true
			}
			// Offsets restart at the paragraph that triggered the split;
			// the tail words precede it in the source.
			bufStart = para.start
		} else if len(parts) == 0 {
			bufStart = para.start
		}
		parts = append(parts, para.text)
		bufWords += words
		bufEnd = para.end
	}
	flush()
	return chunks
}

// overlapTail returns the last overlap words of text, snapped forward to
// the nearest sentence boundary inside the window when one exists.
func overlapTail(text string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	start := len(words) - overlap
	if start < 0 {
		start = 0
	}
	tail := words[start:]

	// Prefer starting the tail on a sentence boundary: the word after the
	// first sentence-ending word in the window.
	for i := 0; i < len(tail)-1; i++ {
		if endsSentence(tail[i]) {
			tail = tail[i+1:]
			break
		}
	}
	return strings.Join(tail, " ")
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") ||
		strings.HasSuffix(word, "!") ||
		strings.HasSuffix(word, "?")
}

// chunkByWindow re-chunks the whole text with a fixed window of maxSize
// words and step maxSize-overlap. Offsets are exact: each chunk spans
// from its first to its last source word.
func (c *Chunker) chunkByWindow(docID, text string) []core.Chunk {
	words := fieldsWithOffsets(text)
	if len(words) == 0 {
		return nil
	}

	step := c.maxSize - c.overlap
	var chunks []core.Chunk
	for start := 0; start < len(words); start += step {
		end := start + c.maxSize
		if end > len(words) {
			end = len(words)
		}
		first, last := words[start], words[end-1]
		chunks = append(chunks, core.Chunk{
			DocumentID: docID,
			Text:       text[first.start : last.start+len(last.word)],
			StartChar:  first.start,
			EndChar:    last.start + len(last.word),
			WordCount:  end - start,
			Method:     core.ChunkMethodWindow,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}

type wordSpan struct {
	word  string
	start int
}

// fieldsWithOffsets is strings.Fields with byte offsets preserved.
func fieldsWithOffsets(text string) []wordSpan {
	var spans []wordSpan
	inWord := false
	start := 0
	for i := 0; i < len(text); i++ {
		isSpace := text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r'
		if !isSpace && !inWord {
			inWord = true
			start = i
		}
		if isSpace && inWord {
			inWord = false
			spans = append(spans, wordSpan{word: text[start:i], start: start})
		}
	}
	if inWord {
		spans = append(spans, wordSpan{word: text[start:], start: start})
	}
	return spans
}
