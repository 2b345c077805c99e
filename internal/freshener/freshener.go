// Package freshener rewrites caption drafts through the OpenAI chat API
// while enforcing local guardrails, so a bad model response can never
// replace a caption with something shorter, longer, or missing its
// mentions and links.
package freshener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("openai api key is not configured, set OPENAI_API_KEY or the config file")

var (
	urlRegex = regexp.MustCompile(`(?i)https?://\S+`)
	// Mentions must not follow a word character. RE2 has no lookbehind, so
	// the preceding character is captured and the mention sits in group 2.
	mentionRegex = regexp.MustCompile(`(^|[^0-9A-Za-z_])(@[A-Za-z0-9._]+)`)
	hashtagRegex = regexp.MustCompile(`(^|\s)#[\p{L}\p{N}_]+`)
	multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
)

// maxStyleSamples caps how many historical captions feed the style prompt.
const maxStyleSamples = 20

// chatCompleter is the slice of the OpenAI client the freshener uses.
// Narrowed to an interface so tests can stub the network call.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps one OpenAI chat model for caption work.
type Client struct {
	chat  chatCompleter
	model string
}

// New builds a Client for the given key and model. The key must be
// non-empty; the model falls back to gpt-4o-mini when blank.
func New(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(model) == "" {
		model = openai.GPT4oMini
	}
	return &Client{chat: openai.NewClient(apiKey), model: model}, nil
}

// Refresh rewrites a caption for freshness in the author's voice and
// validates the result: non-empty, length within 15 percent of the
// original, hashtag-free, and carrying every original @mention and URL.
// A blank original is returned unchanged without calling the API. On any
// guardrail violation the error names the violated rule and the caller
// keeps the original caption.
func (c *Client) Refresh(ctx context.Context, original string, styleSamples []string) (string, error) {
	if strings.TrimSpace(original) == "" {
		return original, nil
	}

	expectedURLs := distinctMatches(urlRegex.FindAllString(original, -1))
	expectedMentions := extractMentions(original)
	length := len([]rune(original))
	minLen := int(math.Floor(float64(length) * 0.85))
	maxLen := int(math.Ceil(float64(length) * 1.15))

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are editing a social media caption for freshness. Keep the core meaning and factual claims unchanged. " +
					"Do not invent details, outcomes, metrics, people, locations, or events. " +
					"Preserve all @mentions and all URLs exactly. " +
					"Strip all hashtags from the rewritten output. " +
					"Match the author's style using provided historical examples. " +
					"Return only the rewritten caption text.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: refreshPrompt(original, styleSamples, expectedMentions, expectedURLs, minLen, maxLen),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	rewritten := strings.TrimSpace(resp.Choices[0].Message.Content)
	rewritten = StripHashtags(rewritten)
	rewritten = normalizeLineEndings(rewritten)

	if err := validateRewrite(rewritten, expectedMentions, expectedURLs, minLen, maxLen); err != nil {
		return "", err
	}
	return rewritten, nil
}

// GenerateTitle asks the model for a short plain title summarizing a
// caption, suitable for slugging into a file name.
func (c *Client) GenerateTitle(ctx context.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", nil
	}

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You name video files. Produce a short descriptive title of at most six words " +
					"for the caption you are given. Plain words only: no hashtags, no emoji, no quotes, " +
					"no punctuation beyond spaces. Return only the title.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: description,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	title := strings.TrimSpace(resp.Choices[0].Message.Content)
	if i := strings.IndexAny(title, "\r\n"); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	title = strings.Trim(title, `"'`)
	return StripHashtags(title), nil
}

func refreshPrompt(original string, styleSamples, mentions, urls []string, minLen, maxLen int) string {
	var samples []string
	for _, s := range styleSamples {
		if strings.TrimSpace(s) != "" {
			samples = append(samples, s)
		}
	}
	if len(samples) > maxStyleSamples {
		samples = samples[len(samples)-maxStyleSamples:]
	}
	styleContext := "No prior samples provided."
	if len(samples) > 0 {
		styleContext = strings.Join(samples, "\n---\n")
	}

	return fmt.Sprintf(`Rewrite this caption for freshness with guardrails.

Original caption:
%s

Author style examples:
%s

Rules:
1) Keep meaning and claims intact.
2) Keep output length between %d and %d characters.
3) Preserve these mentions exactly: %s
4) Preserve these URLs exactly: %s
5) Remove hashtags.
6) Return only the final caption.`,
		original, styleContext, minLen, maxLen, listOrNone(mentions), listOrNone(urls))
}

// validateRewrite checks every guardrail and reports the first violation.
func validateRewrite(rewritten string, mentions, urls []string, minLen, maxLen int) error {
	if strings.TrimSpace(rewritten) == "" {
		return errors.New("model returned an empty caption")
	}
	if n := len([]rune(rewritten)); n < minLen || n > maxLen {
		return fmt.Errorf("rewritten caption length %d outside guardrail range %d..%d", n, minLen, maxLen)
	}
	if hashtagRegex.MatchString(rewritten) {
		return errors.New("rewritten caption still includes hashtags")
	}
	for _, mention := range mentions {
		if !strings.Contains(rewritten, mention) {
			return fmt.Errorf("rewritten caption is missing mention %s", mention)
		}
	}
	for _, url := range urls {
		if !strings.Contains(rewritten, url) {
			return fmt.Errorf("rewritten caption is missing url %s", url)
		}
	}
	return nil
}

// StripHashtags removes every hashtag token and collapses the leftover
// runs of spaces.
func StripHashtags(input string) string {
	if strings.TrimSpace(input) == "" {
		return input
	}
	stripped := hashtagRegex.ReplaceAllString(input, "$1")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(stripped, " "))
}

// extractMentions returns the distinct @mentions in text, in order of
// first appearance.
func extractMentions(text string) []string {
	var mentions []string
	for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
		mentions = append(mentions, m[2])
	}
	return distinctMatches(mentions)
}

func distinctMatches(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
