package mjml

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
)

const defaultFontFamily = "Ubuntu, Helvetica, Arial, sans-serif"

func (d *document) renderHTML() string {
	var b strings.Builder

	bodyBg := d.attr(d.body, "background-color", "")

	b.WriteString("<!doctype html>\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml"><head>`)
	b.WriteString("<title>" + html.EscapeString(d.title) + "</title>")
	b.WriteString(`<meta http-equiv="Content-Type" content="text/html; charset=UTF-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	b.WriteString(`<style type="text/css">body{margin:0;padding:0;-webkit-text-size-adjust:100%;-ms-text-size-adjust:100%;}` +
		`table,td{border-collapse:collapse;}img{border:0;height:auto;line-height:100%;outline:none;text-decoration:none;}` +
		`p{display:block;margin:13px 0;}</style>`)
	fmt.Fprintf(&b, `<style type="text/css">@media only screen and (max-width:%s){.mj-column{width:100%% !important;max-width:100%% !important;}}</style>`,
		html.EscapeString(d.breakpoint))
	for _, href := range d.fonts {
		b.WriteString(`<link href="` + html.EscapeString(href) + `" rel="stylesheet" type="text/css">`)
	}
	for _, css := range d.styles {
		b.WriteString(`<style type="text/css">` + css + `</style>`)
	}
	b.WriteString("</head>")

	b.WriteString(`<body style="word-spacing:normal;` + style("background-color", bodyBg) + `">`)
	if d.preview != "" {
		b.WriteString(`<div style="display:none;font-size:1px;line-height:1px;max-height:0px;max-width:0px;opacity:0;overflow:hidden;">` +
			html.EscapeString(d.preview) + `</div>`)
	}
	b.WriteString(`<div style="` + style("background-color", bodyBg) + `">`)

	width := d.attr(d.body, "width", "600px")
	for _, n := range d.body.children {
		switch n.name {
		case "mj-section":
			d.section(&b, n, width)
		case "mj-wrapper":
			d.wrapper(&b, n, width)
		case "mj-raw":
			b.WriteString(n.content)
		}
	}

	b.WriteString("</div></body></html>\n")
	return b.String()
}

func (d *document) wrapper(b *strings.Builder, n *node, width string) {
	bg := d.attr(n, "background-color", "")
	fmt.Fprintf(b, `<div style="margin:0px auto;max-width:%s;%s">`, attrEscape(width), style("background", bg))
	fmt.Fprintf(b, `<table align="center" border="0" cellpadding="0" cellspacing="0" role="presentation" style="width:100%%;%s"><tbody><tr>`,
		style("background", bg))
	fmt.Fprintf(b, `<td style="direction:ltr;font-size:0px;padding:%s;text-align:center;">`,
		attrEscape(d.attr(n, "padding", "20px 0")))
	for _, c := range n.children {
		switch c.name {
		case "mj-section":
			d.section(b, c, width)
		case "mj-raw":
			b.WriteString(c.content)
		}
	}
	b.WriteString("</td></tr></tbody></table></div>")
}

func (d *document) section(b *strings.Builder, n *node, width string) {
	bg := d.attr(n, "background-color", "")
	class := d.attr(n, "css-class", "")
	fmt.Fprintf(b, `<div%s style="margin:0px auto;max-width:%s;%s">`, classAttr(class), attrEscape(width), style("background", bg))
	fmt.Fprintf(b, `<table align="center" border="0" cellpadding="0" cellspacing="0" role="presentation" style="width:100%%;%s"><tbody><tr>`,
		style("background", bg))
	fmt.Fprintf(b, `<td style="direction:%s;font-size:0px;padding:%s;text-align:%s;">`,
		attrEscape(d.attr(n, "direction", "ltr")),
		attrEscape(d.attr(n, "padding", "20px 0")),
		attrEscape(d.attr(n, "text-align", "center")))

	columns := 0
	for _, c := range n.children {
		if c.name == "mj-column" || c.name == "mj-group" {
			columns++
		}
	}
	for _, c := range n.children {
		switch c.name {
		case "mj-column":
			d.column(b, c, columnWidth(d.attr(c, "width", ""), columns))
		case "mj-group":
			d.group(b, c, columnWidth(d.attr(c, "width", ""), columns))
		case "mj-raw":
			b.WriteString(c.content)
		}
	}
	b.WriteString("</td></tr></tbody></table></div>")
}

func (d *document) group(b *strings.Builder, n *node, width string) {
	fmt.Fprintf(b, `<div class="mj-column" style="font-size:0;line-height:0;text-align:left;display:inline-block;width:100%%;direction:ltr;max-width:%s;%s">`,
		attrEscape(width), style("background-color", d.attr(n, "background-color", "")))
	for _, c := range n.children {
		d.column(b, c, columnWidth(d.attr(c, "width", ""), len(n.children)))
	}
	b.WriteString("</div>")
}

func (d *document) column(b *strings.Builder, n *node, width string) {
	class := strings.TrimSpace("mj-column " + d.attr(n, "css-class", ""))
	fmt.Fprintf(b, `<div class="%s" style="font-size:0px;text-align:left;direction:ltr;display:inline-block;vertical-align:%s;width:100%%;max-width:%s;">`,
		attrEscape(class), attrEscape(d.attr(n, "vertical-align", "top")), attrEscape(width))
	fmt.Fprintf(b, `<table border="0" cellpadding="0" cellspacing="0" role="presentation" style="vertical-align:top;%s%s" width="100%%"><tbody>`,
		style("background-color", d.attr(n, "background-color", "")),
		style("padding", d.attr(n, "padding", "")))

	for _, c := range n.children {
		if c.name == "mj-raw" {
			b.WriteString("<tr><td>" + c.content + "</td></tr>")
			continue
		}
		var inner bytes.Buffer
		align := "left"
		padding := "10px 25px"
		switch c.name {
		case "mj-text":
			d.text(&inner, c, c.content)
		case "mj-markdown":
			var md bytes.Buffer
			if err := d.c.md.Convert([]byte(dedent(html.UnescapeString(c.content))), &md); err != nil {
				md.Reset()
				md.WriteString(html.EscapeString(c.content))
			}
			d.text(&inner, c, md.String())
		case "mj-button":
			align = "center"
			d.button(&inner, c)
		case "mj-image":
			align = "center"
			d.image(&inner, c, width)
		case "mj-divider":
			align = "center"
			d.divider(&inner, c)
		case "mj-spacer":
			padding = ""
			fmt.Fprintf(&inner, `<div style="height:%s;line-height:%s;">&#8202;</div>`,
				attrEscape(d.attr(c, "height", "20px")), attrEscape(d.attr(c, "height", "20px")))
		case "mj-table":
			fmt.Fprintf(&inner, `<table cellpadding="0" cellspacing="0" width="100%%" border="0" style="color:%s;font-family:%s;font-size:%s;line-height:%s;table-layout:auto;width:%s;border:none;">%s</table>`,
				attrEscape(d.attr(c, "color", "#000000")),
				attrEscape(d.attr(c, "font-family", defaultFontFamily)),
				attrEscape(d.attr(c, "font-size", "13px")),
				attrEscape(d.attr(c, "line-height", "22px")),
				attrEscape(d.attr(c, "width", "100%")),
				c.content)
		}
		fmt.Fprintf(b, `<tr><td align="%s"%s style="font-size:0px;%sword-break:break-word;">%s</td></tr>`,
			attrEscape(d.attr(c, "align", align)),
			classAttr(d.attr(c, "css-class", "")),
			style("padding", d.attr(c, "padding", padding)),
			inner.String())
	}
	b.WriteString("</tbody></table></div>")
}

func (d *document) text(b *bytes.Buffer, n *node, content string) {
	fmt.Fprintf(b, `<div style="font-family:%s;font-size:%s;line-height:%s;text-align:%s;color:%s;">%s</div>`,
		attrEscape(d.attr(n, "font-family", defaultFontFamily)),
		attrEscape(d.attr(n, "font-size", "13px")),
		attrEscape(d.attr(n, "line-height", "1")),
		attrEscape(d.attr(n, "align", "left")),
		attrEscape(d.attr(n, "color", "#000000")),
		content)
}

func (d *document) button(b *bytes.Buffer, n *node) {
	bg := d.attr(n, "background-color", "#414141")
	radius := d.attr(n, "border-radius", "3px")
	fmt.Fprintf(b, `<table border="0" cellpadding="0" cellspacing="0" role="presentation" style="border-collapse:separate;line-height:100%%;">`+
		`<tr><td align="center" bgcolor="%s" role="presentation" style="border:none;border-radius:%s;cursor:auto;background:%s;" valign="middle">`,
		attrEscape(bg), attrEscape(radius), attrEscape(bg))

	linkStyle := fmt.Sprintf("display:inline-block;background:%s;color:%s;font-family:%s;font-size:%s;font-weight:%s;line-height:120%%;margin:0;text-decoration:none;text-transform:none;padding:%s;border-radius:%s;",
		bg,
		d.attr(n, "color", "#ffffff"),
		d.attr(n, "font-family", defaultFontFamily),
		d.attr(n, "font-size", "13px"),
		d.attr(n, "font-weight", "normal"),
		d.attr(n, "inner-padding", "10px 25px"),
		radius)

	if href := d.attr(n, "href", ""); href != "" {
		fmt.Fprintf(b, `<a href="%s" style="%s" target="%s">%s</a>`,
			attrEscape(href), attrEscape(linkStyle), attrEscape(d.attr(n, "target", "_blank")), n.content)
	} else {
		fmt.Fprintf(b, `<p style="%s">%s</p>`, attrEscape(linkStyle), n.content)
	}
	b.WriteString("</td></tr></table>")
}

func (d *document) image(b *bytes.Buffer, n *node, columnWidth string) {
	width := d.attr(n, "width", "")
	widthAttr := ""
	if px, ok := pixels(width); ok {
		widthAttr = strconv.Itoa(px)
	} else if px, ok := pixels(columnWidth); ok {
		widthAttr = strconv.Itoa(px - 50)
	}

	img := fmt.Sprintf(`<img alt="%s" src="%s" style="border:0;display:block;outline:none;text-decoration:none;height:%s;width:100%%;font-size:13px;"%s height="auto">`,
		attrEscape(d.attr(n, "alt", "")),
		attrEscape(d.attr(n, "src", "")),
		attrEscape(d.attr(n, "height", "auto")),
		optionalAttr("width", widthAttr))

	b.WriteString(`<table border="0" cellpadding="0" cellspacing="0" role="presentation" style="border-collapse:collapse;border-spacing:0px;"><tbody><tr>`)
	fmt.Fprintf(b, `<td%s>`, optionalAttr("style", style("width", width)))
	if href := d.attr(n, "href", ""); href != "" {
		fmt.Fprintf(b, `<a href="%s" target="_blank">%s</a>`, attrEscape(href), img)
	} else {
		b.WriteString(img)
	}
	b.WriteString("</td></tr></tbody></table>")
}

func (d *document) divider(b *bytes.Buffer, n *node) {
	fmt.Fprintf(b, `<p style="border-top:%s %s %s;font-size:1px;margin:0px auto;width:%s;"></p>`,
		attrEscape(d.attr(n, "border-style", "solid")),
		attrEscape(d.attr(n, "border-width", "4px")),
		attrEscape(d.attr(n, "border-color", "#000000")),
		attrEscape(d.attr(n, "width", "100%")))
}

// columnWidth returns the explicit width or an equal share of the row.
func columnWidth(explicit string, siblings int) string {
	if explicit != "" {
		return explicit
	}
	if siblings <= 1 {
		return "100%"
	}
	share := math.Floor(100/float64(siblings)*100) / 100
	return strconv.FormatFloat(share, 'f', -1, 64) + "%"
}

// pixels parses values like "600px" or "600".
func pixels(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// style renders a single CSS declaration, or nothing for an empty value.
func style(prop, value string) string {
	if value == "" {
		return ""
	}
	return prop + ":" + attrEscape(value) + ";"
}

func classAttr(class string) string {
	return optionalAttr("class", class)
}

func optionalAttr(name, value string) string {
	if value == "" {
		return ""
	}
	return " " + name + `="` + attrEscape(value) + `"`
}

func attrEscape(s string) string {
	return html.EscapeString(s)
}
