// Package gemini extracts dataset requirements from free text with Gemini structured
// output.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/shpitdev/synthdata/internal/requirements"
	"github.com/shpitdev/synthdata/pkg/dataset"
	"github.com/shpitdev/synthdata/pkg/pipeline/core"
	"github.com/shpitdev/synthdata/pkg/pipeline/worker"
	"google.golang.org/genai"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	MaxRetries     int
	RequestTimeout time.Duration
	// RateLimitRPS is shared by every Parse call on the same Parser. <=0 disables it.
	RateLimitRPS float64
}

// unparseableRetries bounds re-asks after a reply that fails to decode or validate.
const unparseableRetries = 1

type Parser struct {
	client *genai.Client
	model  string
	retry  worker.Options
}

var _ requirements.Parser = (*Parser)(nil)

func New(ctx context.Context, cfg Config) (*Parser, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Parser{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
		retry: worker.Options{
			MaxRetries:     cfg.MaxRetries,
			RequestTimeout: cfg.RequestTimeout,
			Limiter:        worker.NewLimiter(cfg.RateLimitRPS),
		},
	}, nil
}

type responseField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Constraints string `json:"constraints"`
}

type responseSchema struct {
	Domain     string          `json:"domain"`
	NumEntries *int            `json:"num_entries"`
	Fields     []responseField `json:"fields"`
}

var fieldTypes = []string{"integer", "float", "string", "date", "datetime", "categorical", "boolean"}

var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"domain":      {Type: genai.TypeString},
		"num_entries": {Type: genai.TypeInteger},
		"fields": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":        {Type: genai.TypeString},
					"type":        {Type: genai.TypeString, Enum: fieldTypes},
					"constraints": {Type: genai.TypeString},
				},
				Required: []string{"name", "type"},
			},
		},
	},
	Required: []string{"domain", "fields"},
}

// Parse sends text to Gemini and validates the structured reply. Replies that cannot be
// decoded or fail validation are wrapped with requirements.ErrUnparseable.
func (p *Parser) Parse(ctx context.Context, text string) (dataset.Requirements, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return dataset.Requirements{}, fmt.Errorf("%w: empty description", requirements.ErrUnparseable)
	}

	prompt := buildPrompt(text)
	reqs, err := worker.Retry(ctx, func(ctx context.Context) (dataset.Requirements, error) {
		resp, err := p.client.Models.GenerateContent(
			ctx,
			p.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{
				CandidateCount:   1,
				ResponseMIMEType: "application/json",
				ResponseSchema:   outputSchema,
			},
		)
		if err != nil {
			return dataset.Requirements{}, classifyErr(err)
		}
		reqs, err := decodeResponse(resp.Text())
		if err != nil {
			// Structured output is occasionally malformed; ask once more before giving up.
			return dataset.Requirements{}, &core.LimitedTransientError{Err: err, ExtraRetries: unparseableRetries}
		}
		return reqs, nil
	}, p.retry)
	if err != nil {
		return dataset.Requirements{}, fmt.Errorf("gemini: %w", err)
	}
	return reqs, nil
}

func decodeResponse(raw string) (dataset.Requirements, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed responseSchema
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return dataset.Requirements{}, fmt.Errorf("%w: gemini: parse structured json: %w", requirements.ErrUnparseable, err)
	}
	doc := requirements.Document{
		Domain:     parsed.Domain,
		NumEntries: parsed.NumEntries,
	}
	for _, f := range parsed.Fields {
		doc.Fields = append(doc.Fields, dataset.FieldSpec{
			Name:        f.Name,
			Type:        strings.ToLower(strings.TrimSpace(f.Type)),
			Constraints: f.Constraints,
		})
	}
	return doc.Requirements()
}

func buildPrompt(text string) string {
	return strings.TrimSpace(`
You extract dataset requirements from a user's description of the data they need.

Return ONLY a single JSON object with these keys:
- domain (string; the field of the dataset, e.g. retail, healthcare)
- num_entries (integer; omit it if the user did not ask for a specific number)
- fields (array of objects with name, type and constraints)

Field rules:
- type is one of: ` + strings.Join(fieldTypes, ", ") + `
- For numeric bounds write constraints as "between <min> and <max>".
- For date bounds write constraints as "between <YYYY-MM-DD> and <YYYY-MM-DD>".
- For a fixed set of values write "options: a, b, c" (string fields) or
  "categories: a, b, c" (categorical fields).
- A lower bound alone such as "over 18" becomes "between 18 and <a sensible maximum>".
- Leave constraints empty when none apply. Do not include extra keys.

Description:
` + text + `
`)
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &core.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &core.TransientError{Err: err}
	}
	return err
}
