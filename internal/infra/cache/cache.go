package cache

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/cinemas/internal/infra/fsx"
)

// Store 提供 <root>/pages/<source>/ 下的页面缓存读写。
//
// 约束：
// - 缓存键是完整请求 URL（含 query），文件名取其 sha1，避免把站点路径映射到本地路径
// - 每条缓存同时记录跟随重定向后的最终 URL，命中时调用方能像网络请求一样检查它
// - ReadOnly=true 时只允许读（回放已有缓存，不新增/覆盖）
type Store struct {
	Root     string
	ReadOnly bool
}

// Page 是一条缓存页面。
type Page struct {
	// URL 是最终页面 URL（可能与请求 URL 不同）。
	URL  string
	Body []byte
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) *Store {
	return &Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// PagePath 返回某个 source 下 rawURL 对应的缓存文件路径。
func (s *Store) PagePath(source, rawURL string) (string, error) {
	src, err := cleanSource(source)
	if err != nil {
		return "", err
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("url 不能为空")
	}
	return filepath.Join(s.Root, "pages", src, pageName(rawURL)), nil
}

func (s *Store) ReadPage(source, rawURL string) (Page, bool, error) {
	path, err := s.PagePath(source, rawURL)
	if err != nil {
		return Page{}, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Page{}, false, nil
		}
		return Page{}, false, err
	}
	p, err := decodePage(b)
	if err != nil {
		return Page{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return p, true, nil
}

func (s *Store) WritePage(source, rawURL string, p Page) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.PagePath(source, rawURL)
	if err != nil {
		return err
	}
	b, err := encodePage(p)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, b)
}

// 文件格式：第一行是最终 URL，其后原样是正文。
func encodePage(p Page) ([]byte, error) {
	u := strings.TrimSpace(p.URL)
	if u == "" || strings.ContainsAny(u, "\r\n") {
		return nil, fmt.Errorf("非法页面 URL：%q", p.URL)
	}
	out := make([]byte, 0, len(u)+1+len(p.Body))
	out = append(out, u...)
	out = append(out, '\n')
	return append(out, p.Body...), nil
}

func decodePage(b []byte) (Page, error) {
	i := bytes.IndexByte(b, '\n')
	if i <= 0 {
		return Page{}, errors.New("缓存文件缺少 URL 行")
	}
	return Page{URL: string(b[:i]), Body: b[i+1:]}, nil
}

func pageName(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:]) + ".page"
}

var sourceNameRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func cleanSource(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("source 不能为空")
	}
	// 最小约束：避免路径穿越。
	if !sourceNameRE.MatchString(s) {
		return "", fmt.Errorf("非法 source：%q", s)
	}
	return s, nil
}
