// Package gemini implements embedding, answer generation and token
// counting on Google Gemini.
package gemini

import (
	"context"
	"strings"

	"github.com/fwojciec/siteqa"
	"google.golang.org/genai"
)

// Ensure Generator implements siteqa.Generator at compile time.
var _ siteqa.Generator = (*Generator)(nil)

// Generator implements siteqa.Generator using Google Gemini.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a Generator for model. An empty model selects
// siteqa.DefaultGenerationModel.
func NewGenerator(client *genai.Client, model string) *Generator {
	if model == "" {
		model = siteqa.DefaultGenerationModel
	}
	return &Generator{client: client, model: model}
}

// Generate answers query using only the assembled context.
func (g *Generator) Generate(ctx context.Context, contextText, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", siteqa.Errorf(siteqa.EINVALID, "question required")
	}
	if strings.TrimSpace(contextText) == "" {
		return "", siteqa.Errorf(siteqa.EINVALID, "context required")
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildUserPrompt(contextText, query)}},
		}},
		BuildConfig(),
	)
	if err != nil {
		return "", siteqa.WrapError(siteqa.EGENERATE, err, "gemini generate: %v", err)
	}
	if result == nil {
		return "", siteqa.Errorf(siteqa.EGENERATE, "gemini returned nil result")
	}

	answer := strings.TrimSpace(result.Text())
	if answer == "" {
		return "", siteqa.Errorf(siteqa.EGENERATE, "gemini returned an empty answer")
	}
	return answer, nil
}

// BuildConfig returns the GenerateContentConfig for Gemini API calls.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You answer questions about a website using only the context blocks provided. " +
					"If the answer is not in the context, say that the crawled site does not cover it. " +
					"After the answer, cite every source you used as (Source: <url>, match score <score>), " +
					"or as (Source: <url>, found via link search) for blocks that came from link search.",
			}},
		},
		Temperature: &temp,
	}
}

// BuildUserPrompt builds the user prompt containing the context and question.
func BuildUserPrompt(contextText, query string) string {
	var sb strings.Builder
	sb.WriteString("<context>\n")
	sb.WriteString(contextText)
	if !strings.HasSuffix(contextText, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("</context>\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}
