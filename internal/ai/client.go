// Package ai wraps the Gemini client behind the two calls the pipeline
// makes: free-form chat and structured expense extraction.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ExpenseReply is the structured JSON object the model returns for an
// extraction request. It translates into exactly one add operation.
type ExpenseReply struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Category string `json:"category"`
	Currency string `json:"currency"`
	Type     string `json:"type"` // "expense" or "income"
	Day      int    `json:"day"`
	Month    int    `json:"month"`
	Year     int    `json:"year"`
}

// Client talks to the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client. Credentials come from the
// environment (GEMINI_API_KEY or application default credentials).
func NewClient(ctx context.Context, model string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: c, model: model}, nil
}

// Chat sends a free-form query with a system instruction and returns the
// model's text reply.
func (c *Client) Chat(ctx context.Context, systemInstruction, userQuery string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemInstruction + "\n\n" + userQuery},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// ExtractExpense asks the model to pull one expense out of the utterance
// as strict JSON and parses the reply.
func (c *Client) ExtractExpense(ctx context.Context, utterance string, categories []string) (*ExpenseReply, error) {
	raw, err := c.Chat(ctx, buildExtractionPrompt(categories), utterance)
	if err != nil {
		return nil, err
	}
	return ParseExpenseReply(raw)
}

// ParseExpenseReply decodes the model output, stripping Markdown fences
// and surrounding junk when the model ignored the formatting rules.
func ParseExpenseReply(raw string) (*ExpenseReply, error) {
	clean := cleanModelJSON(raw)

	var reply ExpenseReply
	if err := json.Unmarshal([]byte(clean), &reply); err != nil {
		return nil, fmt.Errorf("unmarshal model reply: %w\nraw response: %s", err, raw)
	}
	if reply.Amount < 0 {
		return nil, fmt.Errorf("model returned negative amount %d", reply.Amount)
	}
	if reply.Type != "expense" && reply.Type != "income" {
		return nil, fmt.Errorf("model returned unknown type %q", reply.Type)
	}
	return &reply, nil
}

// cleanModelJSON strips ```json fences and keeps only the outermost JSON
// object when extra prose surrounds it.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
