package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter backs Adapter with an OpenAI chat completion, gated
// behind the STUDY_COACH_PROVIDER=openai config flag — it is never
// constructed unless an operator opts in.
type OpenAIAdapter struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIAdapter builds an adapter from an API key. model may be
// empty, in which case openai.ChatModelGPT4oMini is used.
func NewOpenAIAdapter(apiKey string, model openai.ChatModel) *OpenAIAdapter {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (a *OpenAIAdapter) Ask(ctx context.Context, userMessage string, studyCtx Context) (Reply, error) {
	prompt := buildPrompt(userMessage, studyCtx)

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a concise study-planning coach. Keep replies under 120 words."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("coach: openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("coach: openai returned no choices")
	}
	return Reply{Message: resp.Choices[0].Message.Content}, nil
}

func buildPrompt(userMessage string, studyCtx Context) string {
	var b strings.Builder
	b.WriteString("Upcoming tasks:\n")
	for _, t := range studyCtx.UpcomingTasks {
		if t.Deadline != "" {
			fmt.Fprintf(&b, "- %s (%s), due %s\n", t.Title, t.Subject, t.Deadline)
		} else {
			fmt.Fprintf(&b, "- %s (%s)\n", t.Title, t.Subject)
		}
	}
	fmt.Fprintf(&b, "Recent completion rate: %.0f%%\n", studyCtx.RecentCompletion*100)
	if len(studyCtx.Warnings) > 0 {
		b.WriteString("Current workload warnings:\n")
		for _, w := range studyCtx.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	b.WriteString("\nUser: ")
	b.WriteString(userMessage)
	return b.String()
}
