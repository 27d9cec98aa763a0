package agent

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/rcliao/life-assistant/internal/model"
)

var markdown = goldmark.New()

// ParseArticles turns a news briefing into article rows. Each level-2
// heading starts an article; "Source:", "Summary:", "Link:" and
// "Category:" lines below it fill the fields. Importance runs from 5 for
// the first article down to 1.
func ParseArticles(briefing, date string) []model.NewsArticle {
	src := []byte(briefing)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var articles []model.NewsArticle
	var cur *model.NewsArticle
	var extra []string

	flush := func() {
		if cur == nil {
			return
		}
		if cur.Summary == "" && len(extra) > 0 {
			cur.Summary = strings.Join(extra, " ")
		}
		if cur.Title != "" && cur.Link != "" {
			cur.ImportanceScore = max(5-len(articles), 1)
			articles = append(articles, *cur)
		}
		cur, extra = nil, nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= 2 {
			flush()
			if h.Level == 2 {
				title, _ := inlineText(h, src)
				cur = &model.NewsArticle{
					Title:       strings.TrimSpace(title),
					Category:    "general",
					ArticleDate: date,
				}
			}
			continue
		}
		if cur == nil {
			continue
		}
		body, link := inlineText(n, src)
		if cur.Link == "" && link != "" {
			cur.Link = link
		}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
			if line == "" {
				continue
			}
			key, value, ok := field(line)
			if !ok {
				extra = append(extra, line)
				continue
			}
			switch key {
			case "source", "来源":
				cur.Source = value
			case "summary", "摘要":
				cur.Summary = value
			case "link", "url", "链接":
				if value != "" {
					cur.Link = value
				}
			case "category", "分类":
				cur.Category = strings.ToLower(value)
			default:
				extra = append(extra, line)
			}
		}
	}
	flush()
	return articles
}

// field splits "Key: value" (ASCII or full-width colon) with emphasis
// markers removed.
func field(line string) (key, value string, ok bool) {
	line = strings.NewReplacer("**", "", "__", "").Replace(line)
	i := strings.IndexAny(line, ":：")
	if i <= 0 || i > 20 {
		return "", "", false
	}
	sep := 1
	if strings.HasPrefix(line[i:], "：") {
		sep = len("：")
	}
	return strings.ToLower(strings.TrimSpace(line[:i])), strings.TrimSpace(line[i+sep:]), true
}

// inlineText returns the plain text of a block with line breaks kept, and
// the destination of the first link it contains.
func inlineText(n ast.Node, src []byte) (string, string) {
	var buf bytes.Buffer
	link := ""
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if c.Kind() == ast.KindParagraph || c.Kind() == ast.KindListItem {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.AutoLink:
			u := string(v.URL(src))
			buf.WriteString(u)
			if link == "" {
				link = u
			}
			return ast.WalkSkipChildren, nil
		case *ast.Link:
			if link == "" {
				link = string(v.Destination)
			}
		case *ast.CodeSpan:
			for cc := v.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if t, ok := cc.(*ast.Text); ok {
					buf.Write(t.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String(), link
}

// RenderHTML renders markdown to HTML.
func RenderHTML(md string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}
