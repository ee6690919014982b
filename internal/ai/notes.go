package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ttakada/mistakesync/internal/models"
)

const maxNotesTokens = 1024

const systemPrompt = `あなたは失敗から学ぶことを支援するコーチです。` +
	`ユーザーが記録したミスの内容を読み、再発防止のための具体的な改善案を` +
	`3つ以内で簡潔に提案してください。説教はせず、実行可能な行動に絞ること。`

// NotesService generates improvement suggestions for a mistake entry.
// Without an API key the service is disabled and Generate returns empty.
type NotesService struct {
	client  *anthropic.Client
	model   string
	enabled bool
}

func NewNotesService(apiKey, model string) *NotesService {
	if apiKey == "" {
		return &NotesService{}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &NotesService{
		client:  &client,
		model:   model,
		enabled: true,
	}
}

func (s *NotesService) Enabled() bool {
	return s.enabled
}

func (s *NotesService) Generate(ctx context.Context, m *models.Mistake) (string, error) {
	if !s.enabled {
		return "", nil
	}

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxNotesTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(m))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate notes: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func buildPrompt(m *models.Mistake) string {
	lines := []string{
		"タイトル: " + m.Title,
	}
	if m.Situation != "" {
		lines = append(lines, "状況: "+m.Situation)
	}
	if m.Cause != "" {
		lines = append(lines, "原因: "+m.Cause)
	}
	if m.MySolution != "" {
		lines = append(lines, "自分なりの解決策: "+m.MySolution)
	}
	return strings.Join(lines, "\n")
}
