package webdav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"

	"github.com/studio-b12/gowebdav"
	"go.uber.org/zap"
)

const (
	connectTimeout  = 10 * time.Second
	transferTimeout = 30 * time.Second
	listTimeout     = 15 * time.Second
)

// Client 基于 gowebdav，只暴露备份需要的几个操作
type Client struct {
	baseURL  string
	dir      string
	username string
	password string
	logger   *zap.Logger
}

var _ port.BackupTarget = (*Client)(nil)

// NewClient 配置不合法时直接返回 *common.ValidationError，不发起任何请求
func NewClient(cfg domain.WebDAVConfig, logger *zap.Logger) (*Client, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		dir:      normalizeDir(cfg.Path),
		username: cfg.Username,
		password: cfg.Password,
		logger:   logger,
	}, nil
}

// Validate 校验 WebDAV 配置，返回字段级错误
func Validate(cfg domain.WebDAVConfig) error {
	v := &common.ValidationError{}
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		v.Add("url", "服务器地址不能为空")
	} else if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.Add("url", "服务器地址必须以 http:// 或 https:// 开头")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		v.Add("username", "用户名不能为空")
	}
	if cfg.Password == "" {
		v.Add("password", "密码不能为空")
	}
	if strings.Contains(cfg.Path, "..") {
		v.Add("path", "路径不能包含 ..")
	}
	return v.OrNil()
}

func normalizeDir(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

// ctxTransport 让 gowebdav 发出的每个请求都受 ctx 控制
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// session 每次操作新建一个 gowebdav 客户端，超时和取消跟随 ctx
func (c *Client) session(ctx context.Context) *gowebdav.Client {
	dav := gowebdav.NewClient(c.baseURL, c.username, c.password)
	dav.SetTransport(ctxTransport{ctx: ctx, base: http.DefaultTransport})
	return dav
}

// TestConnection 先 OPTIONS 探测服务器，再确认备份目录可访问
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	dav := c.session(ctx)
	if err := dav.Connect(); err != nil {
		return classify("连接测试", err)
	}
	// 目录还不存在时上传前会自动创建
	if _, err := dav.Stat(c.dir); err != nil && !gowebdav.IsErrNotFound(err) {
		return classify("连接测试", err)
	}
	return nil
}

// EnsureDir 创建备份目录，目录已存在也视为成功
func (c *Client) EnsureDir(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return c.ensureDir(c.session(ctx))
}

func (c *Client) ensureDir(dav *gowebdav.Client) error {
	if c.dir == "/" {
		return nil
	}
	if err := dav.MkdirAll(c.dir, 0o755); err != nil && !gowebdav.IsErrCode(err, http.StatusMethodNotAllowed) {
		return classify("创建目录", err)
	}
	return nil
}

// Upload 上传 JSON 备份文件
func (c *Client) Upload(ctx context.Context, filename string, content []byte) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	dav := c.session(ctx)
	if err := c.ensureDir(dav); err != nil {
		return err
	}
	c.logger.Debug("WebDAV 上传", zap.String("path", c.dir+filename))
	if err := dav.Write(c.dir+filename, content, 0o644); err != nil {
		return classify("上传", err)
	}
	c.logger.Info("备份已上传", zap.String("file", filename), zap.Int("bytes", len(content)))
	return nil
}

// Download 下载备份文件
func (c *Client) Download(ctx context.Context, filename string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	data, err := c.session(ctx).Read(c.dir + filename)
	if err != nil {
		return nil, classify("下载", err)
	}
	return data, nil
}

// List 列出目录下的 .json 文件，按文件名倒序 (最新的备份在前)
func (c *Client) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	infos, err := c.session(ctx).ReadDir(c.dir)
	if err != nil {
		return nil, classify("获取文件列表", err)
	}
	return backupNames(infos), nil
}

func backupNames(infos []os.FileInfo) []string {
	var files []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := path.Base(info.Name())
		if strings.HasSuffix(strings.ToLower(name), ".json") {
			files = append(files, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files
}

// classify 区分服务器返回的状态码错误和连接层的失败
func classify(action string, err error) error {
	var status gowebdav.StatusError
	if errors.As(err, &status) {
		return statusError(action, status.Status)
	}
	return networkError(err)
}

// networkError 把连接层的失败转换成可操作的提示
func networkError(err error) error {
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return common.WrapError(common.ErrCodeNetwork, "WebDAV 请求超时，请检查网络或稍后重试", err)
	case errors.As(err, &urlErr):
		return common.WrapError(common.ErrCodeNetwork,
			"无法连接 WebDAV 服务器，请检查地址是否正确、服务是否允许跨域访问 (CORS) 以及网络连接", err)
	default:
		return common.WrapError(common.ErrCodeNetwork, "WebDAV 网络错误", err)
	}
}

func statusError(action string, status int) error {
	var hint string
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		hint = "认证失败，请检查用户名和密码"
	case http.StatusNotFound:
		hint = "路径不存在，请检查备份目录"
	case http.StatusInsufficientStorage:
		hint = "服务器存储空间不足"
	default:
		hint = "服务器返回错误"
	}
	return common.NewError(common.ErrCodeWebDAV, fmt.Sprintf("%s失败 (HTTP %d): %s", action, status, hint))
}
