// Package htmlx 把“按 href 结构识别链接”的抓取逻辑抽象为：文档顺序遍历 <a href> + 可插拔谓词。
//
// 站点 HTML 不受控，provider 只声明“哪些 href 算什么”，遍历与文本规整集中在这里。
package htmlx

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Predicate 判断某个 href 是否属于一类链接。
type Predicate func(href string) bool

// HrefMatches 返回“href 中包含 re 匹配片段”的谓词（search 语义，而非整串匹配）。
func HrefMatches(re *regexp.Regexp) Predicate {
	return func(href string) bool { return re.MatchString(href) }
}

// Rule 把一类链接命名为 Kind。
type Rule struct {
	Kind  string
	Match Predicate
}

// Link 是一次命中：Kind 为首个命中的规则名，Sel 为对应的 <a> 节点。
type Link struct {
	Kind string
	Href string
	Sel  *goquery.Selection
}

// WalkLinks 按文档顺序遍历 root 下所有 <a href>，对每个命中某条规则的链接调用 fn。
// 规则按声明顺序匹配，只取第一个命中的；fn 返回 false 时停止遍历。
func WalkLinks(root *goquery.Selection, rules []Rule, fn func(Link) bool) {
	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		for _, r := range rules {
			if r.Match == nil || !r.Match(href) {
				continue
			}
			return fn(Link{Kind: r.Kind, Href: href, Sel: a})
		}
		return true
	})
}

// FirstLink 返回第一个 href 满足 match 的 <a>。
func FirstLink(root *goquery.Selection, match Predicate) (Link, bool) {
	var (
		out Link
		ok  bool
	)
	WalkLinks(root, []Rule{{Kind: "match", Match: match}}, func(l Link) bool {
		out, ok = l, true
		return false
	})
	return out, ok
}

// ChildElementTexts 返回 sel 首个节点的直接元素子节点的文本（已规整空白），跳过纯文本子节点。
func ChildElementTexts(sel *goquery.Selection) []string {
	if sel == nil || len(sel.Nodes) == 0 {
		return nil
	}
	var out []string
	for c := sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		out = append(out, NormSpace(nodeText(c)))
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// NormSpace 折叠所有空白（含 NBSP）为单个空格并去掉首尾空白。
func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
