package kinopoisk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/cinemas/internal/domain"
	"github.com/John-Robertt/cinemas/internal/htmlx"
	providerx "github.com/John-Robertt/cinemas/internal/provider"
)

// DefaultSearchURL 是 kinopoisk 的搜索入口（first=yes 让站点直接给出最相关结果）。
const DefaultSearchURL = "https://www.kinopoisk.ru/index.php"

var votesHrefRE = regexp.MustCompile(`/film/\d+/votes`)

// Provider 实现 kinopoisk.ru 的评分查询。
//
// 约束：
// - Fetch 只做一次搜索请求，不进入详情页（评分与票数就在搜索结果的 votes 链接里）
// - Parse 必须是纯函数
type Provider struct {
	// SearchURL 为空时使用 DefaultSearchURL。
	SearchURL string
}

var _ providerx.RatingSource = Provider{}

func (Provider) Name() string { return "kinopoisk" }

func (p Provider) searchURL() string {
	u := strings.TrimSpace(p.SearchURL)
	if u == "" {
		return DefaultSearchURL
	}
	return u
}

// FetchRating 以片名为 kp_query 搜索：<SearchURL>?first=yes&kp_query=<title>
func (p Provider) FetchRating(ctx context.Context, title string, f *providerx.Fetcher) ([]byte, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, "", errors.New("title 不能为空")
	}
	q := url.Values{
		"first":    {"yes"},
		"kp_query": {title},
	}
	return f.FetchChecked(ctx, p.Name(), p.searchURL(), q, checkBlocked)
}

// checkBlocked 识别被重定向到验证码页的情况。
func checkBlocked(pageURL string) error {
	if strings.Contains(pageURL, "showcaptcha") {
		return &providerx.BlockedError{URL: pageURL, Reason: "captcha"}
	}
	return nil
}

// ParseRating 取第一个 votes 链接：第一个子元素是评分，第二个是票数原文。
// 页面上没有 votes 链接时返回 domain.NoRating。
func (Provider) ParseRating(html []byte) (domain.Rating, error) {
	if len(html) == 0 {
		return domain.NoRating, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.NoRating, err
	}

	link, ok := htmlx.FirstLink(doc.Selection, htmlx.HrefMatches(votesHrefRE))
	if !ok {
		return domain.NoRating, nil
	}

	parts := htmlx.ChildElementTexts(link.Sel)
	if len(parts) < 2 {
		return domain.NoRating, fmt.Errorf("votes 链接结构异常：%q 只有 %d 个子元素", link.Href, len(parts))
	}

	value, err := parseRatingValue(parts[0])
	if err != nil {
		return domain.NoRating, err
	}
	votes := parts[1]
	if votes == "" {
		votes = "0"
	}
	return domain.Rating{Value: value, Votes: votes}, nil
}

func parseRatingValue(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("评分不是数字：%q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("评分不是有限数：%q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("评分为负数：%q", s)
	}
	return v, nil
}
