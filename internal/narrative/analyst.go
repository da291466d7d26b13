package narrative

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"github.com/kjannette/valuator-backend/internal/models"
)

type Analysis struct {
	Symbol   string `json:"symbol"`
	Language string `json:"language"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Analyst produces the AI write-up for a record. Its failures are reported
// on their own and never touch the financial data.
type Analyst struct {
	gen      Generator
	language string
	md       goldmark.Markdown
	log      zerolog.Logger
}

func NewAnalyst(gen Generator, language string, log zerolog.Logger) *Analyst {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return &Analyst{
		gen:      gen,
		language: language,
		md:       goldmark.New(),
		log:      log.With().Str("component", "narrative").Logger(),
	}
}

func (a *Analyst) Enabled() bool {
	return a != nil && a.gen != nil
}

func (a *Analyst) Analyze(ctx context.Context, r *models.FinancialRecord) (*Analysis, error) {
	if !a.Enabled() {
		return nil, ErrDisabled
	}
	text, err := a.gen.Generate(ctx, BuildPrompt(r, a.language))
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", r.Profile.Symbol).Msg("analysis failed")
		return nil, err
	}
	html, err := a.RenderHTML(text)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		Symbol:   r.Profile.Symbol,
		Language: a.language,
		Markdown: text,
		HTML:     html,
	}, nil
}

// RenderHTML converts the model's markdown to HTML. Raw HTML in the input
// is not passed through.
func (a *Analyst) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := a.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
