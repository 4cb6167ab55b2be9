package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const pageURL = "https://www.kinopoisk.ru/index.php?first=yes&kp_query=%D0%A5"

func TestStore_ReadWritePage(t *testing.T) {
	s := New(t.TempDir(), false)
	in := Page{URL: "https://www.kinopoisk.ru/film/1/", Body: []byte("<html>\n<body/></html>")}
	if err := s.WritePage("kinopoisk", pageURL, in); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	got, ok, err := s.ReadPage("kinopoisk", pageURL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !ok {
		t.Fatalf("期望命中缓存，但 ok=false")
	}
	if got.URL != in.URL || string(got.Body) != string(in.Body) {
		t.Fatalf("内容不一致：%+v", got)
	}

	// 不同 query 是不同的缓存键。
	_, ok, err = s.ReadPage("kinopoisk", pageURL+"1")
	if err != nil || ok {
		t.Fatalf("期望未命中，实际 ok=%v err=%v", ok, err)
	}

	path, err := s.PagePath("kinopoisk", pageURL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if filepath.Ext(path) != ".page" {
		t.Fatalf("缓存文件扩展名不符合预期：%q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("期望文件存在，但 Stat 失败：%v", err)
	}
}

func TestStore_EmptyBody(t *testing.T) {
	s := New(t.TempDir(), false)
	if err := s.WritePage("afisha", pageURL, Page{URL: pageURL}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	got, ok, err := s.ReadPage("afisha", pageURL)
	if err != nil || !ok || got.URL != pageURL || len(got.Body) != 0 {
		t.Fatalf("空正文读写不符合预期：%+v ok=%v err=%v", got, ok, err)
	}
}

func TestStore_RejectsBadPageURL(t *testing.T) {
	s := New(t.TempDir(), false)
	for _, u := range []string{"", "https://x.test/\nfake"} {
		if err := s.WritePage("afisha", pageURL, Page{URL: u, Body: []byte("x")}); err == nil {
			t.Fatalf("期望错误：url=%q", u)
		}
	}
}

func TestStore_CorruptFile(t *testing.T) {
	s := New(t.TempDir(), false)
	path, err := s.PagePath("afisha", pageURL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("<html/>"), 0o644); err != nil {
		t.Fatalf("写文件失败：%v", err)
	}
	if _, ok, err := s.ReadPage("afisha", pageURL); err == nil || ok {
		t.Fatalf("缺少 URL 行应报错，实际 ok=%v err=%v", ok, err)
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	s := New(t.TempDir(), true)
	err := s.WritePage("afisha", "http://www.afisha.ru/msk/schedule_cinema/", Page{URL: "http://www.afisha.ru/", Body: []byte("x")})
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}
}

func TestStore_RejectsBadSource(t *testing.T) {
	s := New(t.TempDir(), false)
	if _, err := s.PagePath("../etc", pageURL); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := s.PagePath("afisha", " "); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}
