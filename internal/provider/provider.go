package provider

import (
	"context"

	"github.com/John-Robertt/cinemas/internal/domain"
)

// ScheduleSource 把“排片站点变化”限制在 provider 子包内部。
//
// 约束：
// - Fetch 不做缓存、不做重试（缓存由 Fetcher 统一实现；重试不在范围内）
// - Parse 必须是纯函数：相同输入 => 相同输出
type ScheduleSource interface {
	Name() string
	FetchSchedule(ctx context.Context, f *Fetcher) (html []byte, pageURL string, err error)
	ParseSchedule(html []byte) (*domain.Movies, error)
}

// RatingSource 按片名查询评分站点。
//
// 约束同 ScheduleSource；找不到评分时 Parse 返回零值 Rating 而不是错误。
type RatingSource interface {
	Name() string
	FetchRating(ctx context.Context, title string, f *Fetcher) (html []byte, pageURL string, err error)
	ParseRating(html []byte) (domain.Rating, error)
}
