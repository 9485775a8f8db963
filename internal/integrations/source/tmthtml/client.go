package tmthtml

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source"
)

// Client scrapes the berthing table published on the terminal's public page.
type Client struct {
	id      string
	pageURL string
	match   string
	httpc   *http.Client
}

func New(id, pageURL string, timeout time.Duration) *Client {
	if pageURL == "" {
		pageURL = "https://www.trieste-marine-terminal.com/it"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		id:      id,
		pageURL: pageURL,
		match:   "Vessel",
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Fetch(ctx context.Context) (source.RawBatch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL, nil)
	if err != nil {
		return source.RawBatch{}, source.Unavailable(c.id, errors.Wrap(err, "new request"))
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return source.RawBatch{}, source.Unavailable(c.id, errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return source.RawBatch{}, source.Unavailable(c.id, fmt.Errorf("terminal page http %d", resp.StatusCode))
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return source.RawBatch{}, source.Unavailable(c.id, errors.Wrap(err, "decode charset"))
	}
	doc, err := html.Parse(body)
	if err != nil {
		return source.RawBatch{}, source.Unavailable(c.id, errors.Wrap(err, "parse html"))
	}

	batch, ok := ExtractTable(doc, c.match)
	if !ok {
		return source.RawBatch{}, source.Unavailable(c.id, fmt.Errorf("no table with %q header", c.match))
	}
	batch.Source = c.id
	return batch, nil
}

// ExtractTable returns the first table having a header cell that contains
// match. Rows above the header are skipped, empty rows are dropped.
func ExtractTable(doc *html.Node, match string) (source.RawBatch, bool) {
	for _, table := range findAll(doc, atom.Table) {
		rows := tableRows(table)
		for i, cells := range rows {
			if !containsFold(cells, match) {
				continue
			}
			out := source.RawBatch{Columns: cells, Rows: [][]string{}}
			for _, r := range rows[i+1:] {
				if blank(r) {
					continue
				}
				out.Rows = append(out.Rows, r)
			}
			return out, true
		}
	}
	return source.RawBatch{}, false
}

func tableRows(table *html.Node) [][]string {
	var out [][]string
	for _, tr := range findAll(table, atom.Tr) {
		// Вложенные таблицы не разбираем.
		if closest(tr, atom.Table) != table {
			continue
		}
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, text(c))
			}
		}
		if len(cells) > 0 {
			out = append(out, cells)
		}
	}
	return out
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func closest(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == a {
			return p
		}
	}
	return nil
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsFold(cells []string, s string) bool {
	s = strings.ToLower(s)
	for _, c := range cells {
		if strings.Contains(strings.ToLower(c), s) {
			return true
		}
	}
	return false
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
