package release

import (
	"regexp"
	"strings"

	"github-star-curator/internal/domain"
)

var markdownLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

var binaryExtensions = []string{
	".exe", ".msi", ".dmg", ".pkg", ".deb", ".rpm", ".apk", ".ipa",
	".appimage", ".zip", ".tar.gz", ".tgz", ".tar.xz", ".7z", ".rar",
	".jar", ".snap", ".flatpak",
}

// ExtractDownloadLinks 先收集结构化附件，再补充正文中像下载地址的 Markdown 链接。
// 正文链接的 URL 或名称与已有链接重复时跳过。
func ExtractDownloadLinks(rel *domain.Release) []domain.DownloadLink {
	links := make([]domain.DownloadLink, 0, len(rel.Assets))
	urls := make(map[string]struct{})
	names := make(map[string]struct{})

	for _, asset := range rel.Assets {
		links = append(links, domain.DownloadLink{
			Name:          asset.Name,
			URL:           asset.BrowserDownloadURL,
			Size:          asset.Size,
			DownloadCount: asset.DownloadCount,
			Source:        domain.LinkFromAsset,
		})
		urls[asset.BrowserDownloadURL] = struct{}{}
		names[strings.ToLower(asset.Name)] = struct{}{}
	}

	for _, m := range markdownLink.FindAllStringSubmatch(rel.Body, -1) {
		text, url := strings.TrimSpace(m[1]), m[2]
		if !looksDownloadable(text, url) {
			continue
		}
		if _, ok := urls[url]; ok {
			continue
		}
		if _, ok := names[strings.ToLower(text)]; ok {
			continue
		}
		links = append(links, domain.DownloadLink{Name: text, URL: url, Source: domain.LinkFromBody})
		urls[url] = struct{}{}
		names[strings.ToLower(text)] = struct{}{}
	}
	return links
}

func looksDownloadable(text, url string) bool {
	lowerURL := strings.ToLower(url)
	if strings.Contains(lowerURL, "/download/") || strings.Contains(lowerURL, "/releases/") {
		return true
	}
	if strings.Contains(strings.ToLower(text), "download") {
		return true
	}
	for _, ext := range binaryExtensions {
		if strings.HasSuffix(lowerURL, ext) {
			return true
		}
	}
	return false
}
