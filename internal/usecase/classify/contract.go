package classify

import (
	"context"

	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
)

// TextCompleter returns a free-text completion for a prompt (delegate classifier backend).
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// VocabularySource loads the known catalog terms.
type VocabularySource interface {
	Vocabulary(ctx context.Context) (vocabulary.Vocabulary, error)
}
