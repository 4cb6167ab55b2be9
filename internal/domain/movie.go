package domain

import "strings"

// MovieRecord 是一部正在上映的电影（title 是唯一主键）。
//
// 不变量：
// - Cinemas 是排片页上该片关联的不同影院链接数量
// - Rating/Votes 在评分阶段之前保持零值（Votes 为 "0"）
type MovieRecord struct {
	Title   string
	Cinemas int
	Rating  float64
	// Votes 保留评分站点上的原始文本（例如 "12 345"），不做数值化。
	Votes string
}

// Movies 是按插入顺序保存的电影集合（顺序来自排片页 HTML）。
// 用下标表做 O(1) 查找，避免为了去重再扫一遍切片。
type Movies struct {
	items []MovieRecord
	idx   map[string]int
}

func NewMovies(records ...MovieRecord) *Movies {
	m := &Movies{idx: make(map[string]int, len(records))}
	for _, r := range records {
		m.Add(r)
	}
	return m
}

// Add 追加一条记录；title 已存在时把影院数累加到原记录上（保持首次出现的位置）。
func (m *Movies) Add(r MovieRecord) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Votes == "" {
		r.Votes = "0"
	}
	if m.idx == nil {
		m.idx = make(map[string]int)
	}
	if i, ok := m.idx[r.Title]; ok {
		m.items[i].Cinemas += r.Cinemas
		return
	}
	m.idx[r.Title] = len(m.items)
	m.items = append(m.items, r)
}

func (m *Movies) Get(title string) (MovieRecord, bool) {
	if m == nil {
		return MovieRecord{}, false
	}
	i, ok := m.idx[strings.TrimSpace(title)]
	if !ok {
		return MovieRecord{}, false
	}
	return m.items[i], true
}

// SetRating 写入评分结果；title 不存在时返回 false。
func (m *Movies) SetRating(title string, rating float64, votes string) bool {
	if m == nil {
		return false
	}
	i, ok := m.idx[strings.TrimSpace(title)]
	if !ok {
		return false
	}
	if strings.TrimSpace(votes) == "" {
		votes = "0"
	}
	m.items[i].Rating = rating
	m.items[i].Votes = votes
	return true
}

func (m *Movies) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// Titles 返回按当前顺序排列的 title 列表。
func (m *Movies) Titles() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.items))
	for _, r := range m.items {
		out = append(out, r.Title)
	}
	return out
}

// Records 返回记录的副本（调用方修改不会影响集合本身）。
func (m *Movies) Records() []MovieRecord {
	if m == nil {
		return nil
	}
	return append([]MovieRecord(nil), m.items...)
}
