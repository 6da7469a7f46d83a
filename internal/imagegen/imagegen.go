package imagegen

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/llm"
)

const (
	providerName        = "replicate"
	DefaultBaseURL      = "https://api.replicate.com"
	DefaultPreset       = "sdxl"
	defaultPollInterval = time.Second
	speedMode           = "Juiced 🔥 (more speed)"
)

// ErrNoImage is returned when a prediction succeeded without producing an image.
var ErrNoImage = errors.New("no image generated")

// Preset is a hosted model version with its fixed generation parameters.
type Preset struct {
	Name    string
	Version string
	Input   func(prompt string, seed int64) map[string]any
}

var presets = map[string]*Preset{
	"sdxl": {
		Name:    "sdxl",
		Version: "39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b",
		Input: func(prompt string, seed int64) map[string]any {
			return map[string]any{
				"prompt":              prompt,
				"width":               1024,
				"height":              1024,
				"num_inference_steps": 50,
				"guidance_scale":      7.5,
				"scheduler":           "K_EULER",
				"seed":                seed,
				"output_quality":      80,
				"speed_mode":          speedMode,
			}
		},
	},
	"hidream": {
		Name:    "hidream",
		Version: "03d58532fd29e39fd2ed80e86c3da1cebec28ef2734081cf1366710d30388f42",
		Input: func(prompt string, seed int64) map[string]any {
			return map[string]any{
				"prompt":         prompt,
				"seed":           seed,
				"output_quality": 80,
				"speed_mode":     speedMode,
			}
		},
	},
}

// Opts for the generator.
type Opts struct {
	BaseURL string
	APIKey  string
	// One of sdxl or hidream. Unknown presets use sdxl.
	Preset       string
	PollInterval time.Duration
	// Returns the seed of a prediction. Random by default.
	Seed func() int64
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Generator turns text prompts into image urls.
type Generator struct {
	opts   *Opts
	preset *Preset
	client *resty.Client
}

// NewGenerator instantiates a generator. A missing api key is only reported by Generate.
func NewGenerator(opts *Opts, options ...any) *Generator {
	client := resty.New()
	for _, option := range options {
		switch t := option.(type) {
		case *http.Client:
			client = resty.NewWithClient(t)
		default:
			panic(errors.Errorf("unknown option type %T", option))
		}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Seed == nil {
		opts.Seed = func() int64 { return rand.Int64N(1000000) }
	}
	preset, ok := presets[opts.Preset]
	if !ok {
		preset = presets[DefaultPreset]
	}
	client.SetBaseURL(opts.BaseURL)
	return &Generator{opts: opts, preset: preset, client: client}
}

// Generate an image from the prompt and return its url.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.opts.APIKey == "" {
		return "", llm.MissingAPIKeyError(providerName)
	}
	body := map[string]any{
		"version": g.preset.Version,
		"input":   g.preset.Input(prompt, g.opts.Seed()),
	}
	response, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(g.opts.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "wait").
		SetBody(body).
		Post("/v1/predictions")
	p, err := parsePrediction(response, err)
	if err != nil {
		return "", errors.Wrap(err, "creating prediction")
	}

	for p.Status == "starting" || p.Status == "processing" {
		if p.URLs.Get == "" {
			return "", llm.NewProviderError(providerName, 0, "prediction has no polling url")
		}
		select {
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), "waiting for prediction")
		case <-time.After(g.opts.PollInterval):
		}
		response, err := g.client.R().SetContext(ctx).SetAuthToken(g.opts.APIKey).Get(p.URLs.Get)
		if p, err = parsePrediction(response, err); err != nil {
			return "", errors.Wrap(err, "polling prediction")
		}
	}

	if p.Status != "succeeded" {
		message := "prediction " + p.Status
		if p.Error != nil {
			if bytes, err := json.Marshal(p.Error); err == nil {
				message += ": " + string(bytes)
			}
		}
		return "", llm.NewProviderError(providerName, 0, message)
	}
	return firstOutput(p.Output)
}

func parsePrediction(response *resty.Response, err error) (*prediction, error) {
	if err != nil {
		return nil, llm.NewProviderError(providerName, 0, err.Error())
	}
	if !response.IsSuccess() {
		message := llm.ErrorMessageFromBody(response.Body())
		if message == "" {
			detail := &struct {
				Detail string `json:"detail"`
			}{}
			if json.Unmarshal(response.Body(), detail) == nil {
				message = detail.Detail
			}
		}
		return nil, llm.NewProviderError(providerName, response.StatusCode(), message)
	}
	p := &prediction{}
	if err := json.Unmarshal(response.Body(), p); err != nil {
		return nil, llm.NewProviderError(providerName, response.StatusCode(), "malformed response: "+err.Error())
	}
	return p, nil
}

// Outputs are either a url or a list of urls depending on the model.
func firstOutput(output json.RawMessage) (string, error) {
	if len(output) == 0 || string(output) == "null" {
		return "", ErrNoImage
	}
	var urls []string
	if err := json.Unmarshal(output, &urls); err == nil {
		if len(urls) == 0 || urls[0] == "" {
			return "", ErrNoImage
		}
		return urls[0], nil
	}
	var url string
	if err := json.Unmarshal(output, &url); err != nil || url == "" {
		return "", ErrNoImage
	}
	return url, nil
}

// FromConfig instantiates the generator described by the configuration.
func FromConfig(config *configuration.Config, options ...any) *Generator {
	return NewGenerator(&Opts{
		BaseURL: config.Providers.Replicate.APIHost,
		APIKey:  config.Providers.Replicate.APIKey,
		Preset:  config.Image.Model,
	}, options...)
}
