package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/John-Robertt/cinemas/internal/config"
	"github.com/John-Robertt/cinemas/internal/provider"
)

func TestHumanizeRunError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "canceled",
			err:  fmt.Errorf("wrap: %w", context.Canceled),
			want: []string{"已取消"},
		},
		{
			name: "config",
			err:  &config.Error{Code: config.ErrCodeInvalid, Path: "/tmp/cinemas.json", Err: errors.New("bad")},
			want: []string{"config_invalid", "/tmp/cinemas.json"},
		},
		{
			name: "blocked",
			err: &provider.Error{Source: "kinopoisk", Stage: "fetch", Title: "Хит",
				Err: &provider.BlockedError{URL: "https://www.kinopoisk.ru/showcaptcha", Reason: "captcha"}},
			want: []string{"kinopoisk", "Хит", "captcha", "proxy.url"},
		},
		{
			name: "429",
			err:  &provider.Error{Source: "kinopoisk", Stage: "fetch", Err: &provider.HTTPStatusError{StatusCode: 429}},
			want: []string{"HTTP 429", "delay_seconds"},
		},
		{
			name: "404",
			err:  &provider.Error{Source: "afisha", Stage: "fetch", Err: &provider.HTTPStatusError{StatusCode: 404}},
			want: []string{"HTTP 404", "schedule_url"},
		},
		{
			name: "redirect",
			err: &provider.Error{Source: "afisha", Stage: "fetch",
				Err: &provider.HTTPStatusError{StatusCode: 302, Location: "https://example.com/"}},
			want: []string{"HTTP 302", "https://example.com/"},
		},
		{
			name: "timeout",
			err:  &provider.Error{Source: "afisha", Stage: "fetch", Err: context.DeadlineExceeded},
			want: []string{"超时", "timeout_seconds"},
		},
		{
			name: "parse",
			err:  &provider.Error{Source: "kinopoisk", Stage: "parse", Title: "Хит", Err: errors.New("rating 不是数字")},
			want: []string{"解析失败", "rating 不是数字"},
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: []string{"运行失败", "boom"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := humanizeRunError(c.err)
			for _, w := range c.want {
				if !strings.Contains(got, w) {
					t.Fatalf("提示缺少 %q：%q", w, got)
				}
			}
		})
	}

	if got := humanizeRunError(nil); got != "" {
		t.Fatalf("nil 应返回空串，实际 %q", got)
	}
}
