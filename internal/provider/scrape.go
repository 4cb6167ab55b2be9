package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/cinemas/internal/domain"
)

// Error 是 provider 阶段的可追溯错误。
// 上层据此区分抓取失败与解析失败，并生成可操作的提示。
type Error struct {
	Source string // source name（小写）
	Stage  string // "fetch" 或 "parse"
	Title  string // 评分查询时的片名；排片阶段为空
	Err    error
}

func (e *Error) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("source=%s stage=%s title=%q: %v", e.Source, e.Stage, e.Title, e.Err)
	}
	return fmt.Sprintf("source=%s stage=%s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Schedule 抓取并解析排片页。
func Schedule(ctx context.Context, src ScheduleSource, f *Fetcher) (*domain.Movies, error) {
	if src == nil {
		return nil, errors.New("schedule source 不能为空")
	}
	name := strings.ToLower(src.Name())

	h, _, err := src.FetchSchedule(ctx, f)
	if err != nil {
		return nil, &Error{Source: name, Stage: "fetch", Err: err}
	}
	movies, err := src.ParseSchedule(h)
	if err != nil {
		return nil, &Error{Source: name, Stage: "parse", Err: err}
	}
	return movies, nil
}

// Rate 查询一个片名的评分。
func Rate(ctx context.Context, src RatingSource, title string, f *Fetcher) (domain.Rating, error) {
	if src == nil {
		return domain.NoRating, errors.New("rating source 不能为空")
	}
	name := strings.ToLower(src.Name())
	if strings.TrimSpace(title) == "" {
		return domain.NoRating, &Error{Source: name, Stage: "fetch", Err: errors.New("title 不能为空")}
	}

	h, _, err := src.FetchRating(ctx, title, f)
	if err != nil {
		return domain.NoRating, &Error{Source: name, Stage: "fetch", Title: title, Err: err}
	}
	r, err := src.ParseRating(h)
	if err != nil {
		return domain.NoRating, &Error{Source: name, Stage: "parse", Title: title, Err: err}
	}
	return r, nil
}
