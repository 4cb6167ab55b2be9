package afisha

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/cinemas/internal/domain"
	"github.com/John-Robertt/cinemas/internal/htmlx"
	providerx "github.com/John-Robertt/cinemas/internal/provider"
)

// DefaultScheduleURL 是莫斯科影院排片页。
const DefaultScheduleURL = "http://www.afisha.ru/msk/schedule_cinema/"

var (
	movieHrefRE  = regexp.MustCompile(`www\.afisha\.ru/movie/\d+/`)
	cinemaHrefRE = regexp.MustCompile(`www\.afisha\.ru/[a-z]+/cinema/\d+/`)
)

const (
	kindMovie  = "movie"
	kindCinema = "cinema"
)

// Provider 实现 afisha.ru 排片页的抓取与解析。
type Provider struct {
	// ScheduleURL 为空时使用 DefaultScheduleURL（例如切换城市：/spb/schedule_cinema/）。
	ScheduleURL string
}

var _ providerx.ScheduleSource = Provider{}

func (Provider) Name() string { return "afisha" }

func (p Provider) scheduleURL() string {
	u := strings.TrimSpace(p.ScheduleURL)
	if u == "" {
		return DefaultScheduleURL
	}
	return u
}

func (p Provider) FetchSchedule(ctx context.Context, f *providerx.Fetcher) ([]byte, string, error) {
	return f.Fetch(ctx, p.Name(), p.scheduleURL(), nil)
}

// ParseSchedule 按文档顺序扫描链接：影片链接设置“当前影片”，其后的影院链接计入该影片，
// 直到下一个影片链接。
//
// 约定：
// - 影片以链接路径识别，片名取该影片第一个带文字的链接（海报链接通常没有文字）
// - 出现在任何影片链接之前的影院链接忽略
// - 同一片名下重复的影院 href 只计一次；同名的不同影片合并计数
// - 最终没有片名或没有任何影院的影片不输出（通常是导航/推荐区的链接）
func (Provider) ParseSchedule(html []byte) (*domain.Movies, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	acc := newTally()
	htmlx.WalkLinks(doc.Selection, []htmlx.Rule{
		{Kind: kindMovie, Match: htmlx.HrefMatches(movieHrefRE)},
		{Kind: kindCinema, Match: htmlx.HrefMatches(cinemaHrefRE)},
	}, func(l htmlx.Link) bool {
		switch l.Kind {
		case kindMovie:
			acc.startMovie(linkKey(movieHrefRE, l.Href), htmlx.NormSpace(l.Sel.Text()))
		case kindCinema:
			acc.addCinema(linkKey(cinemaHrefRE, l.Href))
		}
		return true
	})
	return acc.movies(), nil
}

// tally 是一次扫描的累加状态，按影片路径记账。
type tally struct {
	current string
	order   []string
	titles  map[string]string
	cinemas map[string]map[string]struct{}
}

func newTally() *tally {
	return &tally{
		titles:  make(map[string]string),
		cinemas: make(map[string]map[string]struct{}),
	}
}

func (t *tally) startMovie(key, title string) {
	t.current = key
	if _, ok := t.cinemas[key]; !ok {
		t.cinemas[key] = make(map[string]struct{})
		t.order = append(t.order, key)
	}
	if t.titles[key] == "" {
		t.titles[key] = title
	}
}

func (t *tally) addCinema(key string) {
	if t.current == "" {
		return
	}
	t.cinemas[t.current][key] = struct{}{}
}

func (t *tally) movies() *domain.Movies {
	var order []string
	byTitle := make(map[string]map[string]struct{})
	for _, key := range t.order {
		title := t.titles[key]
		if title == "" {
			continue
		}
		set, ok := byTitle[title]
		if !ok {
			set = make(map[string]struct{})
			byTitle[title] = set
			order = append(order, title)
		}
		for c := range t.cinemas[key] {
			set[c] = struct{}{}
		}
	}

	out := domain.NewMovies()
	for _, title := range order {
		if n := len(byTitle[title]); n > 0 {
			out.Add(domain.MovieRecord{Title: title, Cinemas: n})
		}
	}
	return out
}

// linkKey 取 href 中匹配的站点路径，忽略 scheme 与锚点/参数差异。
func linkKey(re *regexp.Regexp, href string) string {
	if m := re.FindString(href); m != "" {
		return m
	}
	return href
}
