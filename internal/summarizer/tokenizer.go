package summarizer

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens and splits text into overlapping token windows.
type Tokenizer interface {
	Count(text string) int
	Chunk(text string, size, overlap int) []string
}

// NewTokenizer loads the named tiktoken encoding. The encoding files are
// fetched on first use; when that fails the approximate tokenizer is
// returned together with the load error.
func NewTokenizer(encoding string) (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return ApproxTokenizer{}, err
	}
	return tiktokenTokenizer{enc: enc}, nil
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t tiktokenTokenizer) Chunk(text string, size, overlap int) []string {
	tokens := t.enc.Encode(text, nil, nil)
	var chunks []string
	for _, window := range windows(len(tokens), size, overlap) {
		chunks = append(chunks, t.enc.Decode(tokens[window[0]:window[1]]))
	}
	return chunks
}

// ApproxTokenizer estimates four tokens per three words.
type ApproxTokenizer struct{}

func (ApproxTokenizer) Count(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}

func (ApproxTokenizer) Chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	wordSize := max(size*3/4, 1)
	wordOverlap := overlap * 3 / 4
	var chunks []string
	for _, window := range windows(len(words), wordSize, wordOverlap) {
		chunks = append(chunks, strings.Join(words[window[0]:window[1]], " "))
	}
	return chunks
}

// windows returns [start, end) bounds covering n items in steps of
// size-overlap.
func windows(n, size, overlap int) [][2]int {
	if n == 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap
	var out [][2]int
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
		if end == n {
			break
		}
	}
	return out
}
