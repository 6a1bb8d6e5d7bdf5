package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	openrouterx "github.com/looktown/booking-assistant/pkg/openrouter"
)

// Config carries the default OpenRouter settings plus optional per-stage
// model/temperature overrides. The analyzer runs near-deterministic; the
// conversational stages keep a little warmth.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	AnalyzerModel       string  `envconfig:"ANALYZER_MODEL" split_words:"true"`
	ServiceModel        string  `envconfig:"SERVICE_MODEL" split_words:"true"`
	SlotModel           string  `envconfig:"SLOT_MODEL" split_words:"true"`
	AnalyzerTemperature float32 `envconfig:"ANALYZER_TEMPERATURE" split_words:"true" default:"0.1"`
	ServiceTemperature  float32 `envconfig:"SERVICE_TEMPERATURE" split_words:"true" default:"-1"`
	SlotTemperature     float32 `envconfig:"SLOT_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(stage contractx.StageType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch stage {
	case contractx.StageTypeAnalyzer:
		if v := strings.TrimSpace(c.AnalyzerModel); v != "" {
			modelName = v
		}
		if c.AnalyzerTemperature >= 0 {
			temp = c.AnalyzerTemperature
		}
	case contractx.StageTypeServiceManager:
		if v := strings.TrimSpace(c.ServiceModel); v != "" {
			modelName = v
		}
		if c.ServiceTemperature >= 0 {
			temp = c.ServiceTemperature
		}
	case contractx.StageTypeSlotManager:
		if v := strings.TrimSpace(c.SlotModel); v != "" {
			modelName = v
		}
		if c.SlotTemperature >= 0 {
			temp = c.SlotTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
