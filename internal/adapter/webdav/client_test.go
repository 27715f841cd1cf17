package webdav

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDAV 是一个只在内存里保存文件的 WebDAV 服务器
type fakeDAV struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string]bool
	requests []string
	status   map[string]int
}

func newFakeDAV() *fakeDAV {
	return &fakeDAV{files: map[string][]byte{}, dirs: map[string]bool{}, status: map[string]int{}}
}

func (f *fakeDAV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:secret"))
	if r.Header.Get("Authorization") != want {
		w.Header().Set("WWW-Authenticate", `Basic realm="dav"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if code, ok := f.status[r.Method]; ok {
		w.WriteHeader(code)
		return
	}

	switch r.Method {
	case "OPTIONS":
		w.Header().Set("DAV", "1, 2")
		w.WriteHeader(http.StatusOK)
	case "MKCOL":
		if f.dirs[r.URL.Path] {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.dirs[r.URL.Path] = true
		w.WriteHeader(http.StatusCreated)
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.files[r.URL.Path] = data
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		data, ok := f.files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	case "PROPFIND":
		dir := strings.TrimSuffix(r.URL.Path, "/") + "/"
		if dir != "/" && !f.dirs[dir] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?><D:multistatus xmlns:D="DAV:">`)
		io.WriteString(w, davEntry(dir, true))
		if r.Header.Get("Depth") != "0" {
			for p := range f.files {
				if strings.HasPrefix(p, dir) {
					io.WriteString(w, davEntry(p, false))
				}
			}
			io.WriteString(w, davEntry(dir+"notes.txt", false))
			io.WriteString(w, davEntry(dir+"archive.json/", true))
		}
		io.WriteString(w, `</D:multistatus>`)
	}
}

func davEntry(href string, collection bool) string {
	resourceType := "<D:resourcetype/>"
	if collection {
		resourceType = "<D:resourcetype><D:collection/></D:resourcetype>"
	}
	return `<D:response><D:href>` + href + `</D:href><D:propstat><D:prop>` +
		`<D:displayname>` + path.Base(href) + `</D:displayname>` + resourceType +
		`<D:getlastmodified>Mon, 01 Jan 2024 00:00:00 GMT</D:getlastmodified>` +
		`</D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>`
}

func newTestClient(t *testing.T, url string, password string) *Client {
	t.Helper()
	c, err := NewClient(domain.WebDAVConfig{URL: url, Username: "alice", Password: password, Path: "backups"}, nil)
	require.NoError(t, err)
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    domain.WebDAVConfig
		fields []string
	}{
		{name: "合法配置", cfg: domain.WebDAVConfig{URL: "https://dav.example.com", Username: "u", Password: "p"}},
		{name: "全部为空", cfg: domain.WebDAVConfig{}, fields: []string{"url", "username", "password"}},
		{name: "协议不对", cfg: domain.WebDAVConfig{URL: "ftp://x", Username: "u", Password: "p"}, fields: []string{"url"}},
		{name: "路径穿越", cfg: domain.WebDAVConfig{URL: "http://x", Username: "u", Password: "p", Path: "../etc"}, fields: []string{"path"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *common.ValidationError
			require.ErrorAs(t, err, &verr)
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestClient_UploadDownloadList(t *testing.T) {
	dav := newFakeDAV()
	server := httptest.NewServer(dav)
	defer server.Close()

	c := newTestClient(t, server.URL+"/", "secret")
	ctx := context.Background()

	require.NoError(t, c.TestConnection(ctx))
	require.NoError(t, c.Upload(ctx, "backup-2024-01-01.json", []byte(`{"version":"1"}`)))
	// 第二次上传时目录已存在，MKCOL 返回 405 也算成功
	require.NoError(t, c.Upload(ctx, "backup-2024-02-01.json", []byte(`{"version":"2"}`)))

	data, err := c.Download(ctx, "backup-2024-02-01.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"2"}`, string(data))

	files, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"backup-2024-02-01.json", "backup-2024-01-01.json"}, files)

	dav.mu.Lock()
	defer dav.mu.Unlock()
	assert.Contains(t, dav.requests, "MKCOL /backups/")
	assert.Contains(t, dav.requests, "PUT /backups/backup-2024-01-01.json")
}

func TestClient_StatusErrors(t *testing.T) {
	dav := newFakeDAV()
	server := httptest.NewServer(dav)
	defer server.Close()
	ctx := context.Background()

	err := newTestClient(t, server.URL, "wrong").TestConnection(ctx)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeWebDAV, common.CodeOf(err))
	assert.Contains(t, err.Error(), "认证失败")

	_, err = newTestClient(t, server.URL, "secret").Download(ctx, "missing.json")
	assert.Equal(t, common.ErrCodeWebDAV, common.CodeOf(err))
	assert.Contains(t, err.Error(), "HTTP 404")

	dav.mu.Lock()
	dav.status["MKCOL"] = http.StatusConflict
	dav.mu.Unlock()
	err = newTestClient(t, server.URL, "secret").Upload(ctx, "a.json", []byte("{}"))
	assert.Contains(t, err.Error(), "创建目录失败")
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	err := newTestClient(t, addr, "secret").TestConnection(context.Background())
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeNetwork, common.CodeOf(err))
	assert.Contains(t, err.Error(), "CORS")
}

type fileInfo struct {
	name string
	dir  bool
}

func (f fileInfo) Name() string       { return f.name }
func (f fileInfo) Size() int64        { return 0 }
func (f fileInfo) Mode() os.FileMode  { return 0 }
func (f fileInfo) ModTime() time.Time { return time.Time{} }
func (f fileInfo) IsDir() bool        { return f.dir }
func (f fileInfo) Sys() any           { return nil }

func TestBackupNames(t *testing.T) {
	infos := []os.FileInfo{
		fileInfo{name: "a.json"},
		fileInfo{name: "b.JSON"},
		fileInfo{name: "c.txt"},
		fileInfo{name: "old.json", dir: true},
		fileInfo{name: "d.json"},
	}
	assert.Equal(t, []string{"d.json", "b.JSON", "a.json"}, backupNames(infos))
}

func TestClient_ConnectionToleratesMissingDir(t *testing.T) {
	dav := newFakeDAV()
	server := httptest.NewServer(dav)
	defer server.Close()

	// 备份目录还没创建，连接测试仍然通过
	require.NoError(t, newTestClient(t, server.URL, "secret").TestConnection(context.Background()))

	dav.mu.Lock()
	defer dav.mu.Unlock()
	assert.Contains(t, dav.requests, "PROPFIND /backups/")
}

func TestClient_DownloadCanceled(t *testing.T) {
	dav := newFakeDAV()
	server := httptest.NewServer(dav)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, server.URL, "secret").Download(ctx, "a.json")
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeNetwork, common.CodeOf(err))
}

func TestNormalizeDir(t *testing.T) {
	assert.Equal(t, "/", normalizeDir(""))
	assert.Equal(t, "/", normalizeDir("/"))
	assert.Equal(t, "/a/b/", normalizeDir("/a/b"))
	assert.Equal(t, "/x/", normalizeDir(" x/ "))
}
