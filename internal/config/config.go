package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/titanous/json5"

	"github.com/John-Robertt/cinemas/internal/app"
	"github.com/John-Robertt/cinemas/internal/provider/afisha"
	"github.com/John-Robertt/cinemas/internal/provider/kinopoisk"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultFileName 是 cwd 下自动发现的配置文件名（可选）。
	DefaultFileName = "cinemas.json"

	DefaultCountPopularMovies = 10
	DefaultCountCinemas       = 0
	// DefaultDelay 是两次评分查询之间的固定间隔。
	DefaultDelay   = 20 * time.Second
	DefaultTimeout = 20 * time.Second
)

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖配置文件（包括显式传 0）。
type CLIArgs struct {
	ConfigPath string

	CountPopularMovies    int
	CountPopularMoviesSet bool

	CountCinemas    int
	CountCinemasSet bool

	Sort    string
	SortSet bool
}

// FileConfig 对应 cinemas.json（JSON5：允许注释与尾逗号）。
type FileConfig struct {
	ScheduleURL        string       `json:"schedule_url"`
	RatingsURL         string       `json:"ratings_url"`
	DelaySeconds       *float64     `json:"delay_seconds"`
	TimeoutSeconds     *float64     `json:"timeout_seconds"`
	Proxy              *ProxyConfig `json:"proxy"`
	CacheDir           string       `json:"cache_dir"`
	CacheReadOnly      bool         `json:"cache_readonly"`
	CountPopularMovies *int         `json:"count_popular_movies"`
	CountCinemas       *int         `json:"count_cinemas"`
	Sort               string       `json:"sort"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	ScheduleURL string
	RatingsURL  string

	Delay    time.Duration
	Timeout  time.Duration
	ProxyURL string
	// CacheDir 为空表示不启用页面缓存。
	CacheDir string
	// CacheReadOnly 只回放已有缓存，未命中的页面照常抓取但不写回。
	CacheReadOnly bool

	CountPopularMovies int
	CountCinemas       int
	Sort               app.SortMode
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/cinemas.json（可选）
//
// 覆盖优先级：CLI（显式指定）> 配置文件 > 内置默认；网络相关字段仅由配置文件控制。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)

	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, DefaultFileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			cfgPath = ""
		}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	countPopular := DefaultCountPopularMovies
	if cli.CountPopularMoviesSet {
		countPopular = cli.CountPopularMovies
	} else if fc.CountPopularMovies != nil {
		countPopular = *fc.CountPopularMovies
	}
	if countPopular < 0 {
		return invalid(fmt.Errorf("count_popular_movies 不能为负数：%d", countPopular))
	}

	countCinemas := DefaultCountCinemas
	if cli.CountCinemasSet {
		countCinemas = cli.CountCinemas
	} else if fc.CountCinemas != nil {
		countCinemas = *fc.CountCinemas
	}
	if countCinemas < 0 {
		return invalid(fmt.Errorf("count_cinemas 不能为负数：%d", countCinemas))
	}

	sortRaw := fc.Sort
	if cli.SortSet {
		sortRaw = cli.Sort
	}
	sortMode, err := app.ParseSortMode(sortRaw)
	if err != nil {
		return invalid(err)
	}

	delay := DefaultDelay
	if fc.DelaySeconds != nil {
		if *fc.DelaySeconds < 0 {
			return invalid(fmt.Errorf("delay_seconds 不能为负数：%v", *fc.DelaySeconds))
		}
		delay = seconds(*fc.DelaySeconds)
	}

	timeout := DefaultTimeout
	if fc.TimeoutSeconds != nil {
		if *fc.TimeoutSeconds <= 0 {
			return invalid(fmt.Errorf("timeout_seconds 必须大于 0：%v", *fc.TimeoutSeconds))
		}
		timeout = seconds(*fc.TimeoutSeconds)
	}

	scheduleURL, err := httpURL("schedule_url", fc.ScheduleURL, afisha.DefaultScheduleURL)
	if err != nil {
		return invalid(err)
	}
	ratingsURL, err := httpURL("ratings_url", fc.RatingsURL, kinopoisk.DefaultSearchURL)
	if err != nil {
		return invalid(err)
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", proxyURL))
		}
	}

	cacheDir := ""
	if strings.TrimSpace(fc.CacheDir) != "" {
		// 相对路径以配置文件所在目录为基准（没有配置文件时不会走到这里）。
		base := cwdAbs
		if cfgPath != "" {
			base = filepath.Dir(cfgPath)
		}
		cacheDir = absCleanFrom(base, fc.CacheDir)
	} else if fc.CacheReadOnly {
		return invalid(errors.New("cache_readonly 需要同时设置 cache_dir"))
	}

	return EffectiveConfig{
		ConfigPath:         cfgPath,
		ScheduleURL:        scheduleURL,
		RatingsURL:         ratingsURL,
		Delay:              delay,
		Timeout:            timeout,
		ProxyURL:           proxyURL,
		CacheDir:           cacheDir,
		CacheReadOnly:      fc.CacheReadOnly,
		CountPopularMovies: countPopular,
		CountCinemas:       countCinemas,
		Sort:               sortMode,
	}, nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func httpURL(field, raw, def string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return raw, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON5 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json5.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
