package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	"github.com/John-Robertt/cinemas/internal/infra/cache"
)

// Fetcher 是唯一的页面抓取入口：一次 GET，返回原始 HTML。
//
// 约束：
// - 不重试；非 2xx 返回 *HTTPStatusError
// - Cache 非 nil 时先读缓存（以完整 URL 为键），未命中再打网络并写回
// - Gate 只在真正发起网络请求前调用，缓存命中不占用限速名额
type Fetcher struct {
	Client *resty.Client
	Cache  *cache.Store
	Gate   func(ctx context.Context) error
	Log    *slog.Logger
}

// PageCheck 检查跟随重定向后的最终 URL（例如识别验证码页）。
// 返回错误的页面不会交给解析，也不会写入缓存。
type PageCheck func(pageURL string) error

// Fetch 抓取 rawURL（可附加 query），返回 body 与最终页面 URL（跟随重定向之后）。
func (f *Fetcher) Fetch(ctx context.Context, source, rawURL string, query url.Values) ([]byte, string, error) {
	return f.FetchChecked(ctx, source, rawURL, query, nil)
}

// FetchChecked 与 Fetch 相同，但在返回前用 check 检查最终 URL；缓存命中时同样检查。
func (f *Fetcher) FetchChecked(ctx context.Context, source, rawURL string, query url.Values, check PageCheck) ([]byte, string, error) {
	if f == nil || f.Client == nil {
		return nil, "", errors.New("http client 不能为空")
	}
	full, err := withQuery(rawURL, query)
	if err != nil {
		return nil, "", err
	}
	log := f.logger()

	if f.Cache != nil {
		p, ok, err := f.Cache.ReadPage(source, full)
		switch {
		case err != nil:
			log.Warn("读取页面缓存失败", "source", source, "url", full, "err", err)
		case ok:
			log.Debug("页面缓存命中", "source", source, "url", full, "page", p.URL)
			if check != nil {
				if err := check(p.URL); err != nil {
					return nil, p.URL, err
				}
			}
			return p.Body, p.URL, nil
		}
	}

	if f.Gate != nil {
		if err := f.Gate(ctx); err != nil {
			return nil, "", err
		}
	}

	log.Debug("GET", "source", source, "url", full)
	resp, err := f.Client.R().SetContext(ctx).Get(full)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, "", &HTTPStatusError{URL: full, StatusCode: resp.StatusCode(), Location: resp.Header().Get("Location")}
	}

	pageURL := full
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		pageURL = raw.Request.URL.String()
	}
	if check != nil {
		if err := check(pageURL); err != nil {
			return nil, pageURL, err
		}
	}
	body, err := toUTF8(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, "", err
	}

	if f.Cache != nil {
		err := f.Cache.WritePage(source, full, cache.Page{URL: pageURL, Body: body})
		if err != nil && !errors.Is(err, cache.ErrReadOnly) {
			log.Warn("写入页面缓存失败", "source", source, "url", full, "err", err)
		}
	}
	return body, pageURL, nil
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.Default()
}

// toUTF8 按 Content-Type / <meta charset> 把页面转成 UTF-8（站点可能仍在用 windows-1251）。
func toUTF8(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// withQuery 把 query 合并进 rawURL（已有参数保留，同名参数被覆盖）。
func withQuery(rawURL string, query url.Values) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("url 不能为空")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if len(query) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
