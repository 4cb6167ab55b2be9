package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/John-Robertt/cinemas/internal/app"
	"github.com/John-Robertt/cinemas/internal/config"
	"github.com/John-Robertt/cinemas/internal/domain"
	"github.com/John-Robertt/cinemas/internal/infra/cache"
	"github.com/John-Robertt/cinemas/internal/infra/httpx"
	"github.com/John-Robertt/cinemas/internal/provider"
)

// Sources 是一次运行用到的两个站点。
type Sources struct {
	Schedule provider.ScheduleSource
	Rating   provider.RatingSource
}

// Result 是一次运行的产物。
type Result struct {
	// Movies 是过滤 + 排序后的完整列表（展示时再取前 N 条）。
	Movies []domain.MovieRecord
	// Scraped 是排片页解析出的影片数（过滤前）。
	Scraped int
	// Rated 是实际发起评分查询的影片数。
	Rated int
}

// Execute 执行一次完整流程：排片 -> 过滤 -> 逐个查评分 -> 排序。
func Execute(ctx context.Context, eff config.EffectiveConfig, src Sources) (Result, error) {
	return ExecuteWithObserver(ctx, eff, src, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 输出进度。
//
// 任何抓取/解析错误都会立即终止运行（没有重试，也不跳过单条失败）；
// 找不到评分不算错误，记为 0。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, src Sources, obs Observer) (Result, error) {
	if src.Schedule == nil || src.Rating == nil {
		return Result{}, errors.New("schedule/rating source 不能为空")
	}
	if obs != nil {
		obs.OnStart(eff)
	}

	client, err := httpx.NewPageClient(eff.ProxyURL, eff.Timeout)
	if err != nil {
		return Result{}, &config.Error{Code: config.ErrCodeInvalid, Path: eff.ConfigPath, Err: fmt.Errorf("proxy.url 无效：%w", err)}
	}
	f := &provider.Fetcher{Client: client}
	if strings.TrimSpace(eff.CacheDir) != "" {
		f.Cache = cache.New(eff.CacheDir, eff.CacheReadOnly)
	}

	started := time.Now()
	movies, err := provider.Schedule(ctx, src.Schedule, f)
	if err != nil {
		return Result{}, err
	}
	slog.Debug("排片页解析完成", "source", src.Schedule.Name(), "movies", movies.Len())
	if obs != nil {
		obs.OnPhaseDone("schedule", map[string]any{"movies": movies.Len()}, time.Since(started))
	}

	started = time.Now()
	kept := app.FilterArtHouse(movies, eff.CountCinemas)
	if obs != nil {
		obs.OnPhaseDone("filter", map[string]any{
			"min_cinemas": eff.CountCinemas,
			"kept":        kept.Len(),
			"dropped":     movies.Len() - kept.Len(),
		}, time.Since(started))
	}

	titles := ratingTargets(kept.Titles(), eff)
	started = time.Now()
	if err := rateAll(ctx, eff.Delay, src.Rating, f, kept, titles, obs); err != nil {
		return Result{}, err
	}
	if obs != nil {
		obs.OnPhaseDone("ratings", map[string]any{"rated": len(titles)}, time.Since(started))
	}

	started = time.Now()
	ranked := app.Rank(kept.Records(), eff.Sort)
	if obs != nil {
		obs.OnPhaseDone("rank", map[string]any{"sort": string(eff.Sort)}, time.Since(started))
	}

	return Result{Movies: ranked, Scraped: movies.Len(), Rated: len(titles)}, nil
}

// ratingTargets 决定要查评分的片名。
// 按评分排序时必须全部查询；保持原顺序时只有前 N 条会被展示，其余查询没有意义。
func ratingTargets(titles []string, eff config.EffectiveConfig) []string {
	n := eff.CountPopularMovies
	if eff.Sort == app.SortNone && n > 0 && n < len(titles) {
		return titles[:n]
	}
	return titles
}

func rateAll(ctx context.Context, delay time.Duration, src provider.RatingSource, f *provider.Fetcher, movies *domain.Movies, titles []string, obs Observer) error {
	lim := newLimiter(delay)
	// 限速只作用于真正的网络请求：缓存命中的片名不等待。
	rf := *f
	for i, title := range titles {
		title := title
		rf.Gate = func(ctx context.Context) error { return waitTurn(ctx, lim, title, obs) }

		oneStarted := time.Now()
		r, err := provider.Rate(ctx, src, title, &rf)
		if err != nil {
			return err
		}
		movies.SetRating(title, r.Value, r.Votes)
		slog.Debug("评分查询完成", "title", title, "rating", r.Value, "votes", r.Votes)

		if obs != nil {
			rec, _ := movies.Get(title)
			obs.OnRatingDone(i+1, len(titles), rec, time.Since(oneStarted))
		}
	}
	return nil
}

// newLimiter 把固定间隔表达为 burst=1 的令牌桶：首个请求立即放行，之后每 delay 放行一个。
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func waitTurn(ctx context.Context, lim *rate.Limiter, title string, obs Observer) error {
	res := lim.Reserve()
	wait := res.Delay()
	if wait <= 0 {
		return nil
	}
	if obs != nil {
		obs.OnWait(title, wait)
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	}
}
