// Package llm picks the language-model backend for a run.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forPelevin/gistcut/internal/ports"
)

const (
	DefaultProbeTimeout = 10 * time.Second
	probePrompt         = "Say 'OK'"
)

// Querier is the part of ports.LLM that Ping needs.
type Querier interface {
	Query(ctx context.Context, prompt string, opts ports.QueryOptions) (string, error)
}

// Ping sends the probe prompt and expects a reply containing "ok".
func Ping(ctx context.Context, q Querier, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := q.Query(ctx, probePrompt, ports.QueryOptions{Temperature: 0})
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(reply), "ok") {
		r := []rune(strings.TrimSpace(reply))
		if len(r) > 60 {
			r = r[:60]
		}
		return fmt.Errorf("unexpected probe reply %q", string(r))
	}
	return nil
}

type SelectOptions struct {
	// SkipProbe returns the first configured provider without calling it.
	SkipProbe bool
}

type Attempt struct {
	Provider string
	Category Category
	Err      error
}

// SelectionError lists why each provider was passed over.
type SelectionError struct {
	Attempts []Attempt
}

func (e *SelectionError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrProviderUnavailable.Error() + ": no providers registered"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		s := fmt.Sprintf("%s (%s)", a.Provider, a.Category)
		if a.Err != nil {
			s = fmt.Sprintf("%s (%s: %v)", a.Provider, a.Category, a.Err)
		}
		parts = append(parts, s)
	}
	return ErrProviderUnavailable.Error() + ": " + strings.Join(parts, "; ")
}

func (e *SelectionError) Unwrap() error { return ErrProviderUnavailable }

// Select returns the first provider, in priority order, that is configured
// and passes its probe. The choice holds for the whole run.
func Select(ctx context.Context, providers []ports.LLM, logger *slog.Logger, opts SelectOptions) (ports.LLM, error) {
	if logger == nil {
		logger = slog.Default()
	}

	selErr := &SelectionError{}
	for _, p := range providers {
		if !p.Available() {
			logger.Info("provider skipped", slog.String("provider", p.Name()), slog.String("category", string(CategoryNotConfigured)))
			selErr.Attempts = append(selErr.Attempts, Attempt{Provider: p.Name(), Category: CategoryNotConfigured})
			continue
		}
		if opts.SkipProbe {
			logger.Info("provider selected without probe", slog.String("provider", p.Name()), slog.String("model", p.Model()))
			return p, nil
		}

		logger.Info("probing provider", slog.String("provider", p.Name()), slog.String("model", p.Model()))
		err := p.Probe(ctx)
		if err == nil {
			logger.Info("provider selected", slog.String("provider", p.Name()), slog.String("model", p.Model()))
			return p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		cat := Classify(err)
		logger.Warn("provider probe failed",
			slog.String("provider", p.Name()),
			slog.String("category", string(cat)),
			slog.String("error", err.Error()),
		)
		selErr.Attempts = append(selErr.Attempts, Attempt{Provider: p.Name(), Category: cat, Err: err})
	}
	return nil, selErr
}
