package describe

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strings"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/nfnt/resize"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// Describer produces a natural-language description of one image
type Describer interface {
	Describe(ctx context.Context, imagePath string) (string, error)
}

// Options configures the vision-language client
type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	Prompt    string
	MaxTokens int
	// Detail is the image detail level: "low", "high" or "auto"
	Detail string
	// MaxImageEdge downscales images whose long edge exceeds it (0 disables)
	MaxImageEdge int
}

// OptionsFromConfig converts the describe config section
func OptionsFromConfig(cfg config.DescribeConfig) Options {
	return Options{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		Prompt:       cfg.Prompt,
		MaxTokens:    cfg.MaxTokens,
		Detail:       cfg.Detail,
		MaxImageEdge: cfg.MaxImageEdge,
	}
}

// OpenAIDescriber calls an OpenAI-compatible chat completions endpoint with
// the image inlined as a data URL
type OpenAIDescriber struct {
	logger zerolog.Logger
	client openai.Client
	opts   Options
}

// NewOpenAIDescriber creates a describer
func NewOpenAIDescriber(logger zerolog.Logger, opts Options) (*OpenAIDescriber, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("describer requires an API key")
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.Prompt == "" {
		opts.Prompt = config.DefaultPrompt
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 200
	}
	if opts.Detail == "" {
		opts.Detail = "low"
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIDescriber{
		logger: logger.With().Str("component", "describe").Logger(),
		client: openai.NewClient(clientOpts...),
		opts:   opts,
	}, nil
}

// Describe sends one frame with the configured prompt
func (d *OpenAIDescriber) Describe(ctx context.Context, imagePath string) (string, error) {
	url, err := d.dataURL(imagePath)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(d.opts.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    url,
					Detail: d.opts.Detail,
				}),
			}),
		},
		Model:     d.opts.Model,
		MaxTokens: openai.Int(int64(d.opts.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe %s: %w", imagePath, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no description returned for %s", imagePath)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	d.logger.Debug().
		Str("frame", imagePath).
		Int64("tokens", resp.Usage.TotalTokens).
		Msg("frame described")

	return text, nil
}

// dataURL reads the frame, downscales it if needed and inlines it
func (d *OpenAIDescriber) dataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read frame: %w", err)
	}

	if d.opts.MaxImageEdge > 0 {
		data, err = Downscale(data, d.opts.MaxImageEdge)
		if err != nil {
			return "", fmt.Errorf("failed to downscale %s: %w", path, err)
		}
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Downscale shrinks a JPEG so its long edge is at most maxEdge. Smaller images
// are returned untouched.
func Downscale(data []byte, maxEdge int) ([]byte, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= maxEdge && cfg.Height <= maxEdge {
		return data, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var scaled image.Image
	if cfg.Width >= cfg.Height {
		scaled = resize.Resize(uint(maxEdge), 0, img, resize.Lanczos3)
	} else {
		scaled = resize.Resize(0, uint(maxEdge), img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
