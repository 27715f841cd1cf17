package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

// StarredPageSize 是 /user/starred 每页数量，不满一页即视为结束
const StarredPageSize = 100

// Fetcher 实现了 port.GitHubClient 接口
type Fetcher struct {
	client     *github.Client
	maxRetries int
}

// NewFetcher 初始化 GitHub 客户端，Token 以 Bearer 方式放进 Authorization 头
func NewFetcher(token string) *Fetcher {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	}

	return &Fetcher{client: client, maxRetries: 2}
}

var _ port.GitHubClient = (*Fetcher)(nil)

// GetUser 获取当前登录用户
func (f *Fetcher) GetUser(ctx context.Context) (*port.GitHubUser, error) {
	var user *github.User
	err := f.call(ctx, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		user, resp, err = f.client.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return nil, classify("获取用户信息失败", err)
	}
	return &port.GitHubUser{
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
	}, nil
}

// ListStarred 按 updated 排序逐页拉取，直到返回不满一页
func (f *Fetcher) ListStarred(ctx context.Context) ([]domain.Repository, error) {
	var repos []domain.Repository
	for page := 1; ; page++ {
		opts := &github.ActivityListStarredOptions{
			Sort:      "updated",
			Direction: "desc",
			ListOptions: github.ListOptions{
				Page:    page,
				PerPage: StarredPageSize,
			},
		}

		var starred []*github.StarredRepository
		err := f.call(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			starred, resp, err = f.client.Activity.ListStarred(ctx, "", opts)
			return resp, err
		})
		if err != nil {
			return nil, classify(fmt.Sprintf("获取 Star 列表第 %d 页失败", page), err)
		}

		for _, item := range starred {
			if item.Repository == nil {
				continue
			}
			repo := toRepository(item.Repository)
			repo.StarredAt = item.GetStarredAt().Time
			repos = append(repos, repo)
		}

		if len(starred) < StarredPageSize {
			break
		}
	}
	return repos, nil
}

// GetReadme 获取并解码 README
func (f *Fetcher) GetReadme(ctx context.Context, fullName string) (string, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return "", err
	}

	var content *github.RepositoryContent
	err = f.call(ctx, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		content, resp, err = f.client.Repositories.GetReadme(ctx, owner, name, nil)
		return resp, err
	})
	if err != nil {
		return "", classify(fmt.Sprintf("获取 %s 的 README 失败", fullName), err)
	}

	text, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("解码 %s 的 README 失败: %w", fullName, err)
	}
	return text, nil
}

// ListReleases 获取指定页的 Release，并把仓库引用改写为当前仓库
func (f *Fetcher) ListReleases(ctx context.Context, fullName string, page, perPage int) ([]domain.Release, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}

	var items []*github.RepositoryRelease
	err = f.call(ctx, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		items, resp, err = f.client.Repositories.ListReleases(ctx, owner, name, &github.ListOptions{
			Page:    page,
			PerPage: perPage,
		})
		return resp, err
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("获取 %s 的 Release 失败", fullName), err)
	}

	releases := make([]domain.Release, 0, len(items))
	for _, item := range items {
		releases = append(releases, toRelease(item, fullName))
	}
	return releases, nil
}

// GetRateLimit 查询 core 配额
func (f *Fetcher) GetRateLimit(ctx context.Context) (*port.RateLimit, error) {
	limits, _, err := f.client.RateLimits(ctx)
	if err != nil {
		return nil, classify("查询速率限制失败", err)
	}
	core := limits.GetCore()
	if core == nil {
		return &port.RateLimit{}, nil
	}
	return &port.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// call 只在触发限流时重试；网络错误与其他状态码直接返回给用户
func (f *Fetcher) call(ctx context.Context, fn func() (*github.Response, error)) error {
	return common.Do(ctx, func() error {
		_, err := fn()
		return err
	},
		common.WithMaxRetries(f.maxRetries),
		common.WithInitialDelay(2*time.Second),
		common.WithRetryIf(isRateLimited),
	)
}

func isRateLimited(err error) bool {
	var rle *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	return errors.As(err, &rle) || errors.As(err, &abuse)
}

// classify 把 401 转换成需要重新登录的错误，其余归为 GitHub API 错误
func classify(message string, err error) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil &&
		errResp.Response.StatusCode == http.StatusUnauthorized {
		return common.WrapError(common.ErrCodeUnauthorized, "GitHub Token 已过期或无效，请重新登录", err)
	}
	return common.WrapError(common.ErrCodeGitHubAPI, message, err)
}

func splitFullName(fullName string) (string, string, error) {
	parts := strings.Split(strings.Trim(fullName, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("无效的仓库名: %q", fullName))
	}
	return parts[0], parts[1], nil
}

func toRepository(item *github.Repository) domain.Repository {
	return domain.Repository{
		ID:              item.GetID(),
		Name:            item.GetName(),
		FullName:        item.GetFullName(),
		Description:     item.GetDescription(),
		HTMLURL:         item.GetHTMLURL(),
		Language:        item.GetLanguage(),
		Topics:          item.Topics,
		StargazersCount: item.GetStargazersCount(),
		UpdatedAt:       item.GetUpdatedAt().Time,
	}
}

func toRelease(item *github.RepositoryRelease, fullName string) domain.Release {
	assets := make([]domain.ReleaseAsset, 0, len(item.Assets))
	for _, a := range item.Assets {
		assets = append(assets, domain.ReleaseAsset{
			Name:               a.GetName(),
			BrowserDownloadURL: a.GetBrowserDownloadURL(),
			Size:               int64(a.GetSize()),
			DownloadCount:      a.GetDownloadCount(),
		})
	}
	name := fullName
	if i := strings.LastIndex(fullName, "/"); i >= 0 {
		name = fullName[i+1:]
	}
	return domain.Release{
		ID:          item.GetID(),
		Repository:  domain.ReleaseRepo{Name: name, FullName: fullName},
		TagName:     item.GetTagName(),
		Name:        item.GetName(),
		Body:        item.GetBody(),
		HTMLURL:     item.GetHTMLURL(),
		Prerelease:  item.GetPrerelease(),
		PublishedAt: item.GetPublishedAt().Time,
		Assets:      assets,
	}
}
