package llm

import (
	"context"
	"strings"

	"github-star-curator/internal/common"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiCompleter 是 Gemini 后端的对话补全
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter 初始化 Gemini 客户端
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "Gemini 初始化失败", err)
	}
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Complete 把 system 作为系统指令，user 作为正文
func (g *GeminiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	// 强制要求返回 JSON，降低解析错误的概率
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", common.WrapError(common.ErrCodeAIProcessing, "AI 调用失败", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", common.NewError(common.ErrCodeAIProcessing, "AI 返回内容为空")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", common.NewError(common.ErrCodeAIProcessing, "AI 返回格式错误")
	}
	return sb.String(), nil
}

// Close 释放底层连接
func (g *GeminiCompleter) Close() error {
	return g.client.Close()
}
