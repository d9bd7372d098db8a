package mood

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const DefaultModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAIPredictor. BaseURL may point at any
// server speaking the Responses API, e.g. a local Ollama.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Units      string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIPredictor asks a hosted model for the batch mood using a strict
// JSON schema response.
type OpenAIPredictor struct {
	client *openai.Client
	model  string
	units  string
}

var _ Predictor = (*OpenAIPredictor)(nil)

var responseSchema = generateSchema[predictionResponse]()

func NewOpenAIPredictor(cfg OpenAIConfig, opts ...option.RequestOption) (*OpenAIPredictor, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing LLM API key")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	reqOpts = append(reqOpts, opts...)

	client := openai.NewClient(reqOpts...)
	return &OpenAIPredictor{
		client: &client,
		model:  model,
		units:  cfg.Units,
	}, nil
}

func (p *OpenAIPredictor) Predict(ctx context.Context, batch []BatchItem) (Label, error) {
	payload, err := buildPayload(p.units, batch)
	if err != nil {
		return "", err
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "BatchMood",
			Schema:      responseSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Dominant listening mood JSON"),
			Type:        "json_schema",
		},
	}

	input := []responses.ResponseInputItemUnionParam{
		responses.ResponseInputItemParamOfMessage(string(payload), responses.EasyInputMessageRoleUser),
	}
	params := responses.ResponseNewParams{
		Model:           p.model,
		MaxOutputTokens: openai.Int(200),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("requesting mood: %w", err)
	}

	return parseModelOutput(resp.OutputText())
}

func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	requireAllProperties(m)
	return m
}

// requireAllProperties applies the strict-mode rules: no additional
// properties and every property required.
func requireAllProperties(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, prop := range props {
			if m, ok := prop.(map[string]any); ok {
				requireAllProperties(m)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		requireAllProperties(items)
	}
}
