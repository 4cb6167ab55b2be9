package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/cinemas/internal/config"
	"github.com/John-Robertt/cinemas/internal/provider"
)

// humanizeRunError 把运行错误翻译成可操作的一行提示。
func humanizeRunError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "已取消。"
	}
	if config.Code(err) != "" {
		return err.Error()
	}

	var pe *provider.Error
	if !errors.As(err, &pe) {
		return fmt.Sprintf("运行失败：%v", err)
	}

	who := pe.Source
	if pe.Title != "" {
		who = fmt.Sprintf("%s（%q）", pe.Source, pe.Title)
	}
	switch pe.Stage {
	case "parse":
		// 解析失败通常意味着站点结构漂移或返回了非预期页面。
		return fmt.Sprintf("%s 解析失败（站点结构可能变化或返回了非预期内容）：%v", who, pe.Err)
	default:
		return humanizeFetchError(who, pe.Err)
	}
}

func humanizeFetchError(who string, err error) string {
	var be *provider.BlockedError
	if errors.As(err, &be) {
		return fmt.Sprintf("%s 被站点拦截（%s）。当前不支持绕过；建议在配置中设置 proxy.url，或调大 delay_seconds 后重试。", who, be.Reason)
	}

	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		loc := strings.TrimSpace(hs.Location)
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("%s 返回 HTTP %d（可能触发反爬/限流）。建议调大 delay_seconds 或配置 proxy.url。", who, hs.StatusCode)
		case 404:
			return fmt.Sprintf("%s 返回 HTTP 404（页面地址可能已变化，检查 schedule_url/ratings_url）。", who)
		default:
			if loc != "" {
				return fmt.Sprintf("%s 返回 HTTP %d（重定向）：%s", who, hs.StatusCode, loc)
			}
			return fmt.Sprintf("%s 返回 HTTP %d。", who, hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return fmt.Sprintf("%s 抓取超时。建议检查网络/代理，或调大 timeout_seconds。", who)
	}
	return fmt.Sprintf("%s 抓取失败：%v", who, err)
}
