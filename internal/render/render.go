// Package render turns a resolved digest into presentation artifacts: a
// self-contained HTML email document and a compact text form for chat
// delivery.
package render

import (
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"newsdigest/internal/core"
)

// emailTemplate is a complete HTML document with inline styles only, since
// email clients strip <style> blocks inconsistently.
const emailTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0;padding:0;background:#f4f4f4;">
<div style="max-width:680px;margin:0 auto;padding:24px;background:#ffffff;font-family:system-ui,-apple-system,'Segoe UI',Roboto,sans-serif;color:#2c3e50;">
<h1 style="color:#2c3e50;font-size:1.5em;margin-bottom:4px;">Daily News Digest</h1>
<p style="color:#7f8c8d;margin-top:0;">{{.Date}}</p>
{{range .Sections}}
<h2 style="color:#2c3e50;border-bottom:2px solid #3498db;padding-bottom:10px;margin-top:30px;">{{if .Emoji}}{{.Emoji}} {{end}}{{.Category}}</h2>
{{if .Deals}}{{range $i, $item := .Items}}
<div style="margin-top:24px;padding-top:20px;border-top:1px solid #eee;">
{{if .Article.ImageURL}}<img onerror="this.remove()" style="width:110px;height:110px;object-fit:contain;float:left;margin:0 14px 6px 0;border-radius:4px;border:1px solid #eee;background:#f9f9f9;" src="{{.Article.ImageURL}}"/>
{{end}}<h3 style="color:#34495e;margin:0 0 6px;">{{add $i 1}}. {{.Headline}}</h3>
{{if .Price}}<p style="margin:4px 0;"><strong style="color:#c0392b;">{{.Price}}</strong>{{.PriceNote}}</p>
{{end}}<p style="margin:8px 0;">{{.Summary}}</p>
<p style="margin:8px 0;">🛒 <a style="color:#3498db;text-decoration:none;" href="{{.Article.URL}}">View deal</a></p>
<div style="clear:both;"></div>
</div>
{{end}}{{else}}{{range $i, $item := .Items}}
<h3 style="color:#34495e;margin-top:32px;margin-bottom:8px;padding-top:24px;border-top:1px solid #eee;">{{add $i 1}}. {{.Headline}}</h3>
{{if .Article.ImageURL}}<img onerror="this.remove()" style="display:block;max-width:100%;max-height:400px;width:auto;height:auto;object-fit:contain;border-radius:6px;margin:10px auto 16px;" src="{{.Article.ImageURL}}"/>
{{end}}<p style="margin:15px 0;">{{.Summary}}</p>
<p style="margin:15px 0;">🔗 <a style="color:#3498db;text-decoration:none;" href="{{.Article.URL}}">{{.Article.Title}}</a><br/>
📰 {{.Article.Source}} | {{.Article.Published.Format "2006-01-02 15:04"}}</p>
{{end}}{{end}}
{{end}}
<hr style="border:none;border-top:1px solid #eee;margin:25px 0;"/>
<p style="color:#95a5a6;font-size:0.85em;">Generated by newsdigest{{if .Model}} · {{.Model}}{{end}}</p>
</div>
</body>
</html>
`

type sectionData struct {
	Category string
	Emoji    string
	Deals    bool
	Items    []itemData
}

type itemData struct {
	Headline  string
	Summary   string
	Price     string
	PriceNote string
	Article   core.ArticleRecord
}

type emailData struct {
	Date     string
	Model    string
	Sections []sectionData
}

var emailTmpl = template.Must(template.New("email").Funcs(template.FuncMap{
	"add": func(a, b int) int { return a + b },
}).Parse(emailTemplate))

// RenderHTML renders the digest into a complete HTML email document.
func RenderHTML(digest *core.ResolvedDigest) (string, error) {
	data := emailData{
		Date:  digest.Generated.Format("January 2, 2006"),
		Model: digest.Model,
	}
	for _, section := range digest.Sections {
		sd := sectionData{Category: section.Category, Emoji: section.Emoji, Deals: section.Deals}
		for _, item := range section.Items {
			sd.Items = append(sd.Items, itemData{
				Headline:  headline(item),
				Summary:   item.Summary,
				Price:     item.Price,
				PriceNote: priceNote(item),
				Article:   item.Article,
			})
		}
		data.Sections = append(data.Sections, sd)
	}

	var b strings.Builder
	if err := emailTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render email HTML: %w", err)
	}
	return b.String(), nil
}

// RenderText renders the digest as Telegram-flavored HTML text: only <b> and
// <a> tags, sections separated by blank lines.
func RenderText(digest *core.ResolvedDigest) string {
	var b strings.Builder
	for si, section := range digest.Sections {
		if si > 0 {
			b.WriteString("\n\n")
		}
		if section.Emoji != "" {
			b.WriteString(fmt.Sprintf("<b>%s %s</b>\n", section.Emoji, html.EscapeString(section.Category)))
		} else {
			b.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(section.Category)))
		}
		for i, item := range section.Items {
			b.WriteString(fmt.Sprintf("\n<b>%d. %s</b>\n", i+1, html.EscapeString(headline(item))))
			if section.Deals {
				if item.Price != "" {
					b.WriteString(fmt.Sprintf("💰 <b>%s</b>%s\n", html.EscapeString(item.Price), html.EscapeString(priceNote(item))))
				}
				b.WriteString(html.EscapeString(item.Summary))
				b.WriteString("\n")
				b.WriteString(fmt.Sprintf("🛒 <a href=\"%s\">View deal</a>\n", html.EscapeString(item.Article.URL)))
				continue
			}
			b.WriteString(html.EscapeString(item.Summary))
			b.WriteString("\n")
			b.WriteString(fmt.Sprintf("🔗 <a href=\"%s\">%s</a>\n", html.EscapeString(item.Article.URL), html.EscapeString(item.Article.Title)))
			b.WriteString(fmt.Sprintf("📰 %s\n", html.EscapeString(item.Article.Source)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// WriteDigestFile writes the rendered HTML to the output directory and
// returns the file path.
func WriteDigestFile(digest *core.ResolvedDigest, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	rendered, err := RenderHTML(digest)
	if err != nil {
		return "", err
	}

	path := filepath.Join(outputDir, fmt.Sprintf("digest-%s.html", digest.Generated.Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("failed to write digest file: %w", err)
	}
	return path, nil
}

// headline prefers the model-written title, falling back to the article's own.
func headline(item core.ResolvedItem) string {
	if item.Title != "" {
		return item.Title
	}
	return item.Article.Title
}

// priceNote formats the text following a deal's price, e.g.
// " (was $59.99, save 33%) | 📍 Amazon". Empty when the item carries no
// original price, discount or store.
func priceNote(item core.ResolvedItem) string {
	var parts []string
	if item.OriginalPrice != "" {
		parts = append(parts, "was "+item.OriginalPrice)
	}
	if item.Discount != "" {
		parts = append(parts, "save "+item.Discount)
	}

	var b strings.Builder
	if len(parts) > 0 {
		b.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	if item.Store != "" {
		b.WriteString(" | 📍 " + item.Store)
	}
	return b.String()
}
