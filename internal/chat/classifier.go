package chat

import (
	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/SteelMorgan/chatlog-notifier/internal/mapping"
)

// Classifier decides channel and color for a raw line.
// Rules are evaluated in order and the first match wins; they are not mutually exclusive.
type Classifier struct {
	rules        []mapping.Rule
	defaultColor domain.Color
}

// NewClassifier creates a classifier from a rule set
func NewClassifier(set mapping.RuleSet) *Classifier {
	color := set.DefaultColor
	if color == "" {
		color = domain.ColorDarkGray
	}
	return &Classifier{
		rules:        set.Rules,
		defaultColor: color,
	}
}

// Classify returns the result of the first matching rule, or the default (no channel, default color)
func (c *Classifier) Classify(line string) domain.ClassificationResult {
	for _, rule := range c.rules {
		if rule.Matches(line) {
			return rule.Result
		}
	}
	return domain.ClassificationResult{Channel: domain.NoChannel, Color: c.defaultColor}
}
