package service

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"slack-ai-gateway/project/domain"
)

var (
	// urlPattern は本文中の HTTP(S) URL トークンです
	urlPattern = regexp.MustCompile(`https?://[a-zA-Z0-9_/:%#$&?()~.=+\-]+`)

	// slackLinkMarkup は Slack のリンク記法 <url> / <url|label> です
	slackLinkMarkup = regexp.MustCompile(`<([^<>|]+)(?:\|[^<>]*)?>`)

	// slackEntities は Slack がメッセージ本文でエスケープする3文字です
	slackEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">")
)

// 拒否理由
const (
	denyNoURL     = "no url"
	denyMalformed = "malformed url"
	denyNoHost    = "missing host"
	denyDomain    = "blacklisted domain"
	denyExtension = "blacklisted extension"
)

// LinkRules は URL 共有ポリシーの設定です
type LinkRules struct {
	DomainBlacklist    []string
	ExtensionBlacklist []string
	TrackingParams     []string
}

// LinkPolicy は共有された URL の抽出・正規化・許可判定を行います
type LinkPolicy struct {
	resolver Resolver
	domains  map[string]bool
	exts     map[string]bool
	tracking map[string]bool
	logger   *zap.Logger
}

// NewLinkPolicy は LinkPolicy を作成します
func NewLinkPolicy(resolver Resolver, rules LinkRules, logger *zap.Logger) *LinkPolicy {
	return &LinkPolicy{
		resolver: resolver,
		domains:  toSet(rules.DomainBlacklist, strings.ToLower),
		exts:     toSet(rules.ExtensionBlacklist, strings.ToLower),
		tracking: toSet(rules.TrackingParams, nil),
		logger:   logger.Named("link_policy"),
	}
}

// ExtractURL はテキスト中の最初の URL を返します
func ExtractURL(text string) (string, bool) {
	text = slackEntities.Replace(slackLinkMarkup.ReplaceAllString(text, "$1"))
	found := urlPattern.FindString(text)
	return found, found != ""
}

// Canonicalize はリダイレクトを解決した URL を返します。
// 解決に失敗した場合は元の URL をそのまま返します。
func (p *LinkPolicy) Canonicalize(ctx context.Context, rawURL string) string {
	if rawURL == "" || p.resolver == nil {
		return rawURL
	}
	resolved, err := p.resolver.Resolve(ctx, rawURL)
	if err != nil || resolved == "" {
		p.logger.Debug("リダイレクト解決失敗のため元のURLを使用", zap.String("url", rawURL), zap.Error(err))
		return rawURL
	}
	return resolved
}

// StripTracking はトラッキング用クエリとフラグメントを除去します。
// ホストを持たない URL は ok=false になります。
func (p *LinkPolicy) StripTracking(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}

	keys, values := parseOrderedQuery(u.RawQuery)
	var b strings.Builder
	for _, k := range keys {
		if p.tracking[k] {
			continue
		}
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}

	u.RawQuery = b.String()
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// Check はドメイン・拡張子のブラックリストで URL を判定します
func (p *LinkPolicy) Check(rawURL string) domain.Policy {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.Deny(denyMalformed)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return domain.Deny(denyNoHost)
	}
	if p.domains[host] {
		return domain.Deny(denyDomain)
	}
	if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && p.exts[ext] {
		return domain.Deny(denyExtension)
	}
	return domain.Allow()
}

// IsAllowed は URL が処理対象として許可されるかを返します
func (p *LinkPolicy) IsAllowed(rawURL string) bool {
	return p.Check(rawURL).Allowed
}

// Evaluate は 抽出 → 正規化 → トラッキング除去 → 許可判定 を順に行います。
// 拒否はエラーではなく ok=false として返ります。
func (p *LinkPolicy) Evaluate(ctx context.Context, text string) (domain.URLCandidate, bool) {
	raw, ok := ExtractURL(text)
	if !ok {
		return p.denied(domain.URLCandidate{Policy: domain.Deny(denyNoURL)})
	}
	candidate := domain.URLCandidate{Raw: raw}

	stripped, ok := p.StripTracking(p.Canonicalize(ctx, raw))
	if !ok {
		candidate.Policy = domain.Deny(denyMalformed)
		return p.denied(candidate)
	}
	candidate.Canonical = stripped
	candidate.Policy = p.Check(stripped)
	if !candidate.Policy.Allowed {
		return p.denied(candidate)
	}
	return candidate, true
}

func (p *LinkPolicy) denied(c domain.URLCandidate) (domain.URLCandidate, bool) {
	p.logger.Debug("URL 共有ポリシーにより対象外",
		zap.String("raw", c.Raw),
		zap.String("canonical", c.Canonical),
		zap.String("reason", c.Policy.Reason))
	return c, false
}

// parseOrderedQuery はクエリ文字列を初出順のキー一覧と値に分解します。値が空のキーは除きます
func parseOrderedQuery(rawQuery string) ([]string, map[string][]string) {
	var keys []string
	values := make(map[string][]string)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k = unescapeQuery(k)
		v = unescapeQuery(v)
		if v == "" {
			continue
		}
		if _, seen := values[k]; !seen {
			keys = append(keys, k)
		}
		values[k] = append(values[k], v)
	}
	return keys, values
}

func unescapeQuery(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func toSet(items []string, normalize func(string) string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if normalize != nil {
			item = normalize(item)
		}
		set[item] = true
	}
	return set
}
