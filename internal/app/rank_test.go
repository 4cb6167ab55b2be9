package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/cinemas/internal/domain"
)

func sample() *domain.Movies {
	return domain.NewMovies(
		domain.MovieRecord{Title: "A", Cinemas: 1, Rating: 6.1},
		domain.MovieRecord{Title: "B", Cinemas: 12, Rating: 8.2},
		domain.MovieRecord{Title: "C", Cinemas: 5, Rating: 6.1},
		domain.MovieRecord{Title: "D", Cinemas: 4, Rating: 7.0},
	)
}

func TestFilterArtHouse_ZeroIsNoop(t *testing.T) {
	m := sample()
	require.Same(t, m, FilterArtHouse(m, 0))
	require.Same(t, m, FilterArtHouse(m, -3))
}

func TestFilterArtHouse_Threshold(t *testing.T) {
	m := sample()
	got := FilterArtHouse(m, 5)

	require.Equal(t, []string{"B", "C"}, got.Titles())
	for _, r := range got.Records() {
		require.GreaterOrEqual(t, r.Cinemas, 5)
	}
	for _, r := range m.Records() {
		if _, kept := got.Get(r.Title); !kept {
			require.Less(t, r.Cinemas, 5)
		}
	}
	// 原集合不受影响
	require.Equal(t, 4, m.Len())
}

func TestRank_ByRatingDescendingStable(t *testing.T) {
	rs := sample().Records()
	got := Rank(rs, SortByRating)

	titles := make([]string, 0, len(got))
	for _, r := range got {
		titles = append(titles, r.Title)
	}
	require.Equal(t, []string{"B", "D", "A", "C"}, titles)
	require.Equal(t, "A", rs[0].Title, "入参不应被修改")
}

func TestRank_NoneKeepsSourceOrder(t *testing.T) {
	got := Rank(sample().Records(), SortNone)
	require.Equal(t, "A", got[0].Title)
	require.Equal(t, "D", got[3].Title)
}

func TestParseSortMode(t *testing.T) {
	m, err := ParseSortMode("")
	require.NoError(t, err)
	require.Equal(t, SortByRating, m)

	m, err = ParseSortMode(" NONE ")
	require.NoError(t, err)
	require.Equal(t, SortNone, m)

	_, err = ParseSortMode("votes")
	require.Error(t, err)
}
