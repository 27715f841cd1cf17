package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
	"github-star-curator/internal/release"

	"go.uber.org/zap"
)

const (
	maxLinks     = 5
	maxBodyRunes = 500
)

// errRejected 表示飞书明确拒绝了请求 (4xx)，重试没有意义
var errRejected = errors.New("飞书拒绝请求")

// Notifier 把新 Release 推送到飞书群机器人
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

var _ port.Notifier = (*Notifier)(nil)

func NewNotifier(webhook string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if webhook == "" {
		logger.Warn("⚠️ 飞书 Webhook 为空，推送功能将无法工作！")
	}
	return &Notifier{
		webhookURL: webhook,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		logger:     logger,
	}
}

// NotifyRelease 发送飞书卡片消息 (Schema 2.0)
func (n *Notifier) NotifyRelease(ctx context.Context, rel *domain.Release) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeNotification, "Webhook URL 为空")
	}

	body, err := json.Marshal(buildCard(rel))
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "构造卡片失败", err)
	}

	err = common.Do(ctx, func() error {
		return n.post(ctx, body)
	},
		common.WithMaxRetries(n.maxRetries),
		common.WithInitialDelay(n.retryDelay),
		common.WithRetryIf(func(err error) bool { return !errors.Is(err, errRejected) }),
	)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "发送请求失败", err)
	}

	n.logger.Info("已推送 Release", zap.String("repo", rel.Repository.FullName), zap.String("tag", rel.TagName))
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", errRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: 飞书 API 报错: 状态码 %d", errRejected, resp.StatusCode)
	default:
		return fmt.Errorf("飞书 API 报错: 状态码 %d", resp.StatusCode)
	}
}

func buildCard(rel *domain.Release) map[string]interface{} {
	title := fmt.Sprintf("🚀 新版本发布: %s %s", rel.Repository.FullName, rel.DisplayName())
	template := "blue"
	if rel.Prerelease {
		template = "orange"
	}

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": template,
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements": []map[string]interface{}{
					{
						"tag":       "markdown",
						"content":   buildMarkdown(rel),
						"text_size": "normal",
					},
					{
						"tag": "button",
						"text": map[string]interface{}{
							"tag":     "plain_text",
							"content": "🔗 查看 Release",
						},
						"type": "primary",
						"behaviors": []map[string]interface{}{
							{
								"type":        "open_url",
								"default_url": rel.HTMLURL,
							},
						},
					},
				},
			},
		},
	}
}

func buildMarkdown(rel *domain.Release) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**🏷️ Tag:** %s  |  **发布时间:** %s", rel.TagName, rel.PublishedAt.Format("2006-01-02 15:04"))
	if rel.Prerelease {
		b.WriteString("  |  **预发布**")
	}
	b.WriteString("\n")

	links := release.ExtractDownloadLinks(rel)
	if len(links) > 0 {
		b.WriteString("\n**📦 下载:**\n")
		for i, l := range links {
			if i == maxLinks {
				fmt.Fprintf(&b, "- ... 还有 %d 个\n", len(links)-maxLinks)
				break
			}
			if l.Size > 0 {
				fmt.Fprintf(&b, "- [%s](%s) (%s)\n", l.Name, l.URL, common.FormatFileSize(l.Size))
			} else {
				fmt.Fprintf(&b, "- [%s](%s)\n", l.Name, l.URL)
			}
		}
	}

	if notes := strings.TrimSpace(rel.Body); notes != "" {
		if r := []rune(notes); len(r) > maxBodyRunes {
			notes = string(r[:maxBodyRunes]) + "..."
		}
		b.WriteString("\n**📝 更新说明:**\n")
		b.WriteString(notes)
	}
	return b.String()
}
