package scrape

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	activePageSelector   = ".sg-pagination-v2-page-active"
	nextControlSelector  = ".sg-pagination-v2-next"
	pageNumberSelector   = ".sg-pagination-v2-page"
	disabledControlClass = "sg-pagination-v2-disabled"
)

// PageInfo describes where a listing page sits in the paginated directory.
type PageInfo struct {
	Current int
	Total   int // 0 when the page count is not visible
	HasNext bool
}

// AnalyzePagination reads the pagination controls of a listing page.
// A page without controls counts as page 1 with no successor.
func AnalyzePagination(html string) (PageInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageInfo{}, fmt.Errorf("parse listing page: %w", err)
	}

	info := PageInfo{Current: 1}

	if active := doc.Find(activePageSelector).First(); active.Length() > 0 {
		text := strings.TrimSpace(active.Text())
		n, err := strconv.Atoi(text)
		if err != nil {
			return PageInfo{}, fmt.Errorf("parse active page number %q: %w", text, err)
		}
		info.Current = n
	}

	next := doc.Find(nextControlSelector).First()
	info.HasNext = next.Length() > 0 && !next.HasClass(disabledControlClass)

	doc.Find(pageNumberSelector).Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil && n > info.Total {
			info.Total = n
		}
	})

	return info, nil
}

// NextPath builds the request path of the page after this one. listPath is
// the query-free path of the directory listing. The directory numbers its
// query pages from zero, so the visible page number doubles as the next
// page's query index.
func (p PageInfo) NextPath(listPath string) string {
	if !p.HasNext {
		return ""
	}
	return fmt.Sprintf("%s?page=%d", listPath, p.Current)
}
