package links

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/SteelMorgan/chatlog-notifier/internal/observability"
	"github.com/SteelMorgan/chatlog-notifier/internal/retry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "chatlog-notifier/1.0"

// HTTPResolverConfig configures item name lookup over HTTP
type HTTPResolverConfig struct {
	URLTemplate   string        // fmt template with one %s for the item id
	TitleSuffix   string        // removed from the end of the page title
	Timeout       time.Duration // per request
	RatePerSecond float64       // <= 0 disables limiting
	Retry         retry.Config
	UserAgent     string
	Client        *http.Client // optional
}

// HTTPResolver resolves item ids by fetching the item page and reading its <title>
type HTTPResolver struct {
	cfg     HTTPResolverConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPResolver creates an HTTP item resolver
func NewHTTPResolver(cfg HTTPResolverConfig) (*HTTPResolver, error) {
	if strings.Count(cfg.URLTemplate, "%s") != 1 {
		return nil, fmt.Errorf("lookup URL template must contain exactly one %%s: %q", cfg.URLTemplate)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	r := &HTTPResolver{cfg: cfg, client: client}
	if cfg.RatePerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return r, nil
}

// Resolve implements Resolver. Only item links are supported.
func (r *HTTPResolver) Resolve(ctx context.Context, kind domain.LinkKind, id string) (string, error) {
	if kind != domain.LinkItem {
		return "", &LookupError{Kind: kind, ID: id, Err: ErrUnsupported}
	}

	ctx, span := observability.StartSpan(ctx, "links.resolve",
		attribute.String("link.kind", kind.String()),
		attribute.String("link.id", id),
	)

	name, err := r.resolve(ctx, id)
	observability.EndSpan(span, err, "item lookup")
	if err != nil {
		return "", &LookupError{Kind: kind, ID: id, Err: err}
	}
	return name, nil
}

func (r *HTTPResolver) resolve(ctx context.Context, id string) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	// ids come from chat text; escaping keeps them inside one path segment
	target := fmt.Sprintf(r.cfg.URLTemplate, url.PathEscape(id))

	return retry.DoWithResult(ctx, r.cfg.Retry, func() (string, error) {
		return r.fetchTitle(ctx, target)
	})
}

func (r *HTTPResolver) fetchTitle(ctx context.Context, target string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &retry.StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	title := strings.TrimRightFunc(doc.Find("title").First().Text(), unicode.IsSpace)
	name := strings.TrimSpace(strings.TrimSuffix(title, r.cfg.TitleSuffix))
	if name == "" {
		return "", ErrNotFound
	}

	log.Debug().
		Str("url", target).
		Str("name", name).
		Msg("Item name resolved")

	return name, nil
}
