package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/John-Robertt/cinemas/internal/domain"
)

// SortMode 决定输出顺序。
type SortMode string

const (
	// SortByRating 按评分降序；评分相同保持排片页顺序。
	SortByRating SortMode = "rating"
	// SortNone 保持排片页顺序（与最初脚本的实际输出一致）。
	SortNone SortMode = "none"
)

func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortByRating, "":
		return SortByRating, nil
	case SortNone:
		return SortNone, nil
	default:
		return "", fmt.Errorf("sort 只能是 rating 或 none，实际是 %q", s)
	}
}

// FilterArtHouse 去掉影院数少于 minCinemas 的影片（“艺术片过滤”）。
// minCinemas<=0 表示不过滤，直接返回原集合。
func FilterArtHouse(m *domain.Movies, minCinemas int) *domain.Movies {
	if minCinemas <= 0 || m == nil {
		return m
	}
	out := domain.NewMovies()
	for _, r := range m.Records() {
		if r.Cinemas >= minCinemas {
			out.Add(r)
		}
	}
	return out
}

// Rank 返回排序后的新切片，不修改入参。
func Rank(records []domain.MovieRecord, mode SortMode) []domain.MovieRecord {
	out := append([]domain.MovieRecord(nil), records...)
	if mode != SortByRating {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}
