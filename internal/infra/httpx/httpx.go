package httpx

import (
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout 是单次请求的总超时（当配置未指定时）。
const DefaultTimeout = 20 * time.Second

// Transport 把“UA 池 + 代理 + keep-alive 策略”固化为统一策略。
//
// 约束：只做一次尝试，不重试；失败直接交给上层终止运行。
type Transport struct {
	Base *http.Transport

	ua *uaPool

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone 避免在 RoundTripper 内部修改调用方的 request。
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" || isRestyUA(r.Header.Get("User-Agent")) {
		r.Header.Set("User-Agent", t.ua.random())
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

// resty 会给每个请求填默认 UA；站点按 UA 拦截脚本请求，这里统一换成浏览器 UA。
func isRestyUA(ua string) bool {
	return strings.HasPrefix(ua, "go-resty/")
}

// NewPageClient 构造用于页面抓取的 resty client。
//
// 规则：
// - proxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - 内置 UA 池：每个请求随机 UA
// - timeout<=0 时使用 DefaultTimeout
func NewPageClient(proxyURL string, timeout time.Duration) (*resty.Client, error) {
	hc, err := newHTTPClient(strings.TrimSpace(proxyURL))
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.NewWithClient(hc)
	c.SetTimeout(timeout)
	c.SetRetryCount(0)
	return c, nil
}

func newHTTPClient(proxyURL string) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 缺少 scheme 或 host")
		}
		base.Proxy = http.ProxyURL(u)
		// 代理池轮换依赖每请求新连接。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	return &http.Client{
		Transport: &Transport{
			Base:              base,
			ua:                globalUA,
			DisableKeepAlives: disableKeepAlives,
		},
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
