// Package gemini implements forecast.Generator on the Gemini API.
package gemini

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/forecast"
)

const DefaultModel = "gemini-3-flash-preview"

var (
	ErrEmptyResponse = errors.New("gemini: empty response")
	ErrMissingAPIKey = errors.New("gemini: API key is required")
)

// contentGenerator is the part of genai.Models in use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Generator struct {
	models contentGenerator
	model  string
}

var _ forecast.Generator = (*Generator)(nil)

func NewGenerator(ctx context.Context, conf core.GeminiConfig) (*Generator, error) {
	if conf.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return newGenerator(client.Models, conf.Model), nil
}

// Disabled stands in for the Gemini API when no key is configured: every forecast fails
// with ErrMissingAPIKey.
type Disabled struct{}

var _ forecast.Generator = Disabled{}

func (Disabled) GenerateJSON(context.Context, string, forecast.OutputSchema) (string, error) {
	return "", ErrMissingAPIKey
}

func newGenerator(models contentGenerator, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{models: models, model: model}
}

func (g *Generator) GenerateJSON(ctx context.Context, prompt string, schema forecast.OutputSchema) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(&schema),
	})
	if err != nil {
		return "", errors.Wrap(err, "gemini: generating content")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toGenaiSchema(s *forecast.OutputSchema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{
		Type:             genaiType(s.Type),
		Description:      s.Description,
		Enum:             s.Enum,
		Required:         s.Required,
		PropertyOrdering: s.PropertyOrder,
		Items:            toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		gs.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			gs.Properties[name] = toGenaiSchema(prop)
		}
	}
	return gs
}

func genaiType(t forecast.FieldType) genai.Type {
	switch t {
	case forecast.TypeObject:
		return genai.TypeObject
	case forecast.TypeString:
		return genai.TypeString
	case forecast.TypeNumber:
		return genai.TypeNumber
	case forecast.TypeInteger:
		return genai.TypeInteger
	case forecast.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}
