package embedding

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts the tokens a provider would bill for text.
type TokenCounter interface {
	Count(text string) int
}

// WordCounter approximates tokens by whitespace separated words.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// TiktokenCounter counts tokens with the BPE encoding used by the OpenAI
// embedding models.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

const embeddingEncoding = "cl100k_base"

func NewTiktokenCounter() (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(embeddingEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", embeddingEncoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
