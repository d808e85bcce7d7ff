package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mamed-gasimov/photo-albums/internal/modules/analysis"
)

// maxPhotoNames bounds the prompt size for very large albums.
const maxPhotoNames = 500

const systemPrompt = "You are a helpful assistant. Given the name of a photo album and the file names of its photos, " +
	"write a brief, friendly overview (2-3 sentences) of what the album probably contains."

type Provider struct {
	client openai.Client
	model  openai.ChatModel
}

var _ analysis.Provider = (*Provider)(nil)

func NewProvider(apiKey string, baseURL string) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	return &Provider{client: client, model: openai.ChatModelGPT4oMini}
}

func (p *Provider) AlbumSummary(ctx context.Context, album string, photoNames []string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(album, photoNames)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openai")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(album string, photoNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Album: %s\n", album)
	if len(photoNames) == 0 {
		b.WriteString("The album is empty.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Photos (%d):\n", len(photoNames))
	for i, name := range photoNames {
		if i == maxPhotoNames {
			fmt.Fprintf(&b, "... and %d more\n", len(photoNames)-maxPhotoNames)
			break
		}
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return b.String()
}
