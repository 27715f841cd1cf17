package llm

import (
	"context"
	"fmt"
	"strings"

	"github-star-curator/internal/common"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompleter 调用任意兼容 OpenAI 的 {baseURL}/chat/completions 接口
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAICompleter 创建客户端；baseURL 例如 https://api.openai.com/v1
func NewOpenAICompleter(baseURL, apiKey, model string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: 0.3,
		maxTokens:   800,
	}
}

// Complete 发送 system+user 两条消息，返回助手的文本回复
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", common.WrapError(common.ErrCodeAIProcessing, "AI 调用失败", err)
	}
	if len(resp.Choices) == 0 {
		return "", common.NewError(common.ErrCodeAIProcessing, "AI 返回内容为空")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", common.NewError(common.ErrCodeAIProcessing, fmt.Sprintf("AI 返回内容为空 (model=%s)", c.model))
	}
	return content, nil
}
