package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/cinemas/internal/app/run"
	"github.com/John-Robertt/cinemas/internal/config"
	"github.com/John-Robertt/cinemas/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// 所有过程信息写到 stderr，stdout 只留给最终结果行；评分查询之间有固定等待，
// 每次等待前打印一行，避免用户以为程序卡住。
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.startedAt = now

	fmt.Fprintf(p.w, "[%s] cinemas\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  schedule: %s\n", truncate(eff.ScheduleURL, 120))
	fmt.Fprintf(p.w, "  ratings: %s\n", truncate(eff.RatingsURL, 120))
	fmt.Fprintf(p.w, "  count_popular_movies: %s\n", formatTop(eff.CountPopularMovies))
	fmt.Fprintf(p.w, "  count_cinemas: %d\n", eff.CountCinemas)
	fmt.Fprintf(p.w, "  sort: %s\n", eff.Sort)
	fmt.Fprintf(p.w, "  delay: %s\n", formatShortDuration(eff.Delay))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	if eff.CacheDir != "" {
		mode := ""
		if eff.CacheReadOnly {
			mode = " (readonly)"
		}
		fmt.Fprintf(p.w, "  cache: %s%s\n", eff.CacheDir, mode)
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "schedule":
		fmt.Fprintf(p.w, "排片: movies=%d (%s)\n", intField(fields, "movies"), formatShortDuration(dur))
	case "filter":
		fmt.Fprintf(p.w, "过滤: min_cinemas=%d kept=%d dropped=%d\n",
			intField(fields, "min_cinemas"), intField(fields, "kept"), intField(fields, "dropped"),
		)
	case "ratings":
		fmt.Fprintf(p.w, "评分: rated=%d (%s)\n", intField(fields, "rated"), formatElapsed(dur))
	case "rank":
		fmt.Fprintf(p.w, "完成: elapsed=%s\n\n", formatElapsed(time.Since(p.startedAt)))
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnWait(title string, wait time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "  等待 %s 后查询 %q\n", formatShortDuration(wait), truncate(title, 60))
}

func (p *progressUI) OnRatingDone(idx, total int, rec domain.MovieRecord, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := "OK"
	if rec.Rating == 0 {
		status = "NONE"
	}
	fmt.Fprintf(p.w, "[%d/%d] %-4s %s rating=%.3f votes=%s cinemas=%d (%s)\n",
		idx, total, status, truncate(rec.Title, 60), rec.Rating, rec.Votes, rec.Cinemas, formatShortDuration(dur),
	)
}

func formatTop(n int) string {
	if n <= 0 {
		return "all"
	}
	return fmt.Sprintf("%d", n)
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

// truncate 按 rune 截断，避免把西里尔字母切成半个字符。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
