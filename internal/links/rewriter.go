package links

import (
	"context"
	"regexp"
	"strings"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/rs/zerolog/log"
)

// [prefix:payload], brackets are not allowed inside so "[3.LFG] [charname:Bob]" yields one token
var tokenPattern = regexp.MustCompile(`\[([^\[\]:]+):([^\[\]]*)\]`)

// ScanTokens returns every link token in the line, left to right
func ScanTokens(line string) []domain.LinkToken {
	matches := tokenPattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return nil
	}

	tokens := make([]domain.LinkToken, 0, len(matches))
	for _, m := range matches {
		tok := domain.LinkToken{
			Start:   m[0],
			Length:  m[1] - m[0],
			Raw:     line[m[0]:m[1]],
			Prefix:  line[m[2]:m[3]],
			Payload: line[m[4]:m[5]],
		}
		switch tok.Prefix {
		case "item":
			tok.Kind = domain.LinkItem
		case "charname":
			tok.Kind = domain.LinkCharName
		default:
			tok.Kind = domain.LinkOther
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Rewriter replaces item and character links with readable text.
// Item names come from a Resolver; character names are taken from the payload.
type Rewriter struct {
	resolver Resolver
}

// NewRewriter creates a link rewriter
func NewRewriter(resolver Resolver) *Rewriter {
	return &Rewriter{resolver: resolver}
}

// Rewrite returns the line with every resolvable token replaced.
// Failed or malformed tokens stay as their raw bracketed text.
func (r *Rewriter) Rewrite(ctx context.Context, line string, ch domain.Channel) string {
	tokens := ScanTokens(line)
	if len(tokens) == 0 {
		return line
	}

	// Output is built from the original line; token offsets always refer to it
	var b strings.Builder
	b.Grow(len(line))
	pos := 0
	for _, tok := range tokens {
		b.WriteString(line[pos:tok.Start])
		b.WriteString(r.replacement(ctx, tok, ch))
		pos = tok.Start + tok.Length
	}
	b.WriteString(line[pos:])
	return b.String()
}

func (r *Rewriter) replacement(ctx context.Context, tok domain.LinkToken, ch domain.Channel) string {
	id := strings.TrimSpace(tok.ID())

	switch tok.Kind {
	case domain.LinkCharName:
		if id == "" {
			return tok.Raw
		}
		return id

	case domain.LinkItem:
		if id == "" || r.resolver == nil {
			return tok.Raw
		}
		name, err := r.resolver.Resolve(ctx, domain.LinkItem, id)
		if err != nil {
			log.Warn().
				Err(err).
				Str("item_id", id).
				Str("channel", ch.String()).
				Msg("Failed to resolve item link, keeping raw token")
			return tok.Raw
		}
		return "<" + name + ">"

	default:
		return tok.Raw
	}
}
