package tokenizer

import "github.com/hyperjump/kotoba/internal/models"

// SequenceBuilder converts tokens into fixed-length id and attention-mask sequences.
type SequenceBuilder struct {
	tok    *Tokenizer
	maxLen int
}

// NewSequenceBuilder returns a builder producing sequences of maxLen positions
// (models.MaxSequenceLength when maxLen <= 0).
func NewSequenceBuilder(tok *Tokenizer, maxLen int) *SequenceBuilder {
	if maxLen <= 0 {
		maxLen = models.MaxSequenceLength
	}
	return &SequenceBuilder{tok: tok, maxLen: maxLen}
}

// MaxLen returns the sequence length.
func (b *SequenceBuilder) MaxLen() int {
	return b.maxLen
}

// Build encodes tokens and returns padded ids with their attention mask.
func (b *SequenceBuilder) Build(tokens []string) (inputIDs, attentionMask []int64) {
	return b.BuildIDs(b.tok.Encode(tokens))
}

// BuildIDs truncates ids from the end or right-pads them with the pad id to maxLen positions.
// The mask is 1 wherever the id differs from the pad id, so unknown tokens that fell back to the
// pad id are masked out as well.
func (b *SequenceBuilder) BuildIDs(ids []int) (inputIDs, attentionMask []int64) {
	pad := int64(b.tok.PadTokenID())
	inputIDs = make([]int64, b.maxLen)
	attentionMask = make([]int64, b.maxLen)
	for i := range inputIDs {
		id := pad
		if i < len(ids) {
			id = int64(ids[i])
		}
		inputIDs[i] = id
		if id != pad {
			attentionMask[i] = 1
		}
	}
	return inputIDs, attentionMask
}
