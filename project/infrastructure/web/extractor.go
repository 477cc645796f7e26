package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"slack-ai-gateway/project/domain"
)

// maxBodyBytes は読み込む HTML の上限サイズです
const maxBodyBytes = 5 << 20

// removedTags は本文抽出前に取り除く非コンテンツ要素です。
// link は閉じ忘れが多く、除去すると後続の本文まで消えるため対象にしません。
var removedTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Header: true,
	atom.Footer: true,
	atom.Nav:    true,
	atom.Iframe: true,
	atom.Form:   true,
	atom.Button: true,
}

// blockTags は本文で改行として扱うブロック要素です
var blockTags = map[atom.Atom]bool{
	atom.Br:    true,
	atom.Div:   true,
	atom.Table: true,
	atom.P:     true,
	atom.Li:    true,
	atom.Tr:    true,
	atom.Td:    true,
	atom.H1:    true,
	atom.H2:    true,
	atom.H3:    true,
	atom.H4:    true,
	atom.H5:    true,
	atom.H6:    true,
}

var headingTags = map[atom.Atom]bool{
	atom.H1: true,
	atom.H2: true,
	atom.H3: true,
	atom.H4: true,
	atom.H5: true,
	atom.H6: true,
}

// FetchError はページ取得に失敗したことを表します。呼び出し側は「結果なし」として扱います
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("web: ページ取得失敗 (url=%s): %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractorConfig はコンテンツ抽出の設定です
type ExtractorConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// RemoveAside が true の場合は aside 要素も取り除きます
	RemoveAside bool
}

// Extractor は Web ページを取得して本文情報を抽出します
type Extractor struct {
	client  *http.Client
	removed map[atom.Atom]bool
	logger  *zap.Logger
}

// NewExtractor は Extractor を作成します
func NewExtractor(cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	removed := make(map[atom.Atom]bool, len(removedTags)+1)
	for a := range removedTags {
		removed[a] = true
	}
	if cfg.RemoveAside {
		removed[atom.Aside] = true
	}
	return &Extractor{
		client:  newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout),
		removed: removed,
		logger:  logger.Named("extractor"),
	}
}

// Fetch は URL を取得して ExtractedPage を返します。
// 通信に関する失敗はすべて *FetchError として返ります。
func (e *Extractor) Fetch(ctx context.Context, rawURL string) (*domain.ExtractedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	page, err := e.Parse(rawURL, body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	e.logger.Debug("ページ抽出完了",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("headings", len(page.Headings)),
		zap.Int("body_len", len(page.Body)))
	return page, nil
}

// Parse は HTML を解析して ExtractedPage を返します
func (e *Extractor) Parse(pageURL string, r io.Reader) (*domain.ExtractedPage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("web: HTML 解析失敗: %w", err)
	}

	page := &domain.ExtractedPage{
		URL:   pageURL,
		Title: pageURL,
	}
	if title := findFirst(doc, atom.Title); title != nil {
		if t := strings.TrimSpace(textContent(title)); t != "" {
			page.Title = strings.ReplaceAll(strings.ReplaceAll(t, "\r\n", " "), "\n", " ")
		}
	}
	if content, ok := metaContent(doc, "description"); ok {
		page.Description = &content
	}
	if content, ok := metaContent(doc, "keywords"); ok {
		page.Keywords = splitKeywords(content)
	}

	e.removeNodes(doc)

	page.Headings = collectHeadings(doc)

	// 本文は <body> 配下のみ（タイトルは Title に含まれる）
	root := doc
	if body := findFirst(doc, atom.Body); body != nil {
		root = body
	}
	var b strings.Builder
	flatten(&b, root)
	page.Body = normalizeBody(b.String())
	return page, nil
}

// removeNodes は除去対象の要素をサブツリーごと取り除きます
func (e *Extractor) removeNodes(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && e.removed[c.DataAtom] {
			n.RemoveChild(c)
		} else {
			e.removeNodes(c)
		}
		c = next
	}
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// metaContent は <meta name="..."> の content 属性を返します（空の場合は ok=false）
func metaContent(doc *html.Node, name string) (string, bool) {
	var content string
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta && strings.EqualFold(attr(n, "name"), name) {
			content = attr(n, "content")
			found = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return content, found && content != ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func splitKeywords(content string) []string {
	var keywords []string
	for _, k := range strings.Split(content, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// collectHeadings は h1〜h6 のテキストを文書順に返します
func collectHeadings(doc *html.Node) []string {
	headings := []string{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && headingTags[n.DataAtom] {
			if t := strings.Join(strings.Fields(textContent(n)), " "); t != "" {
				headings = append(headings, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return headings
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// flatten はテキストを連結し、ブロック要素の後に改行を入れます
func flatten(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(b, c)
	}
	if n.Type == html.ElementNode && blockTags[n.DataAtom] {
		b.WriteByte('\n')
	}
}

// normalizeBody は行内の空白を1つにまとめ、空行を除いて改行で連結します
func normalizeBody(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
