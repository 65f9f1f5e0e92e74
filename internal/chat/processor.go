package chat

import (
	"context"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
)

// LinkRewriter replaces markup tokens in a line with display text
type LinkRewriter interface {
	Rewrite(ctx context.Context, line string, ch domain.Channel) string
}

// Processor turns one raw chat log line into a ProcessedLine:
// classify, strip timestamp prefix, rewrite links
type Processor struct {
	classifier *Classifier
	rewriter   LinkRewriter
}

// NewProcessor creates a line processor
func NewProcessor(classifier *Classifier, rewriter LinkRewriter) *Processor {
	return &Processor{
		classifier: classifier,
		rewriter:   rewriter,
	}
}

// Process runs the pipeline for one line. It never fails: link resolution
// problems degrade to the raw token text inside the rewriter.
func (p *Processor) Process(ctx context.Context, raw string) domain.ProcessedLine {
	// Classification looks at the raw line, the tags live in the prefix
	result := p.classifier.Classify(raw)

	stripped, timestamp := ExtractTimestamp(raw)

	text := stripped
	if p.rewriter != nil {
		text = p.rewriter.Rewrite(ctx, stripped, result.Channel)
	}

	return domain.ProcessedLine{
		Text:      text,
		Color:     result.Color,
		Timestamp: timestamp,
		Channel:   result.Channel,
	}
}
