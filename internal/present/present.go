// Package present 把排好序的影片渲染为控制台输出。
package present

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/John-Robertt/cinemas/internal/domain"
)

// Line 返回单条影片的输出行。
func Line(r domain.MovieRecord) string {
	return fmt.Sprintf("Фильм \"%s\" имеет рейтинг %.3f, его показывают в %d кинотеатрах", r.Title, r.Rating, r.Cinemas)
}

// WriteLines 逐行输出前 n 条；n<=0 或 n 超过长度时输出全部。
func WriteLines(w io.Writer, records []domain.MovieRecord, n int) error {
	for _, r := range limit(records, n) {
		if _, err := fmt.Fprintln(w, Line(r)); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable 以表格输出前 n 条（规则同 WriteLines）。
func WriteTable(w io.Writer, records []domain.MovieRecord, n int) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Фильм", "Рейтинг", "Голоса", "Кинотеатры"})
	for i, r := range limit(records, n) {
		t.AppendRow(table.Row{i + 1, r.Title, fmt.Sprintf("%.3f", r.Rating), r.Votes, r.Cinemas})
	}
	t.SetStyle(table.StyleRounded)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func limit(records []domain.MovieRecord, n int) []domain.MovieRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
