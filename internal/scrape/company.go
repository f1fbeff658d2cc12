// Package scrape pulls provider listings and pagination state out of
// downloaded directory pages.
package scrape

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
)

// Address is the structured postal address attached to a provider entry.
// Every field is required; an entry that lacks one is skipped whole.
type Address struct {
	Country    string `json:"country"`
	Locality   string `json:"locality"`
	Region     string `json:"region"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	Telephone  string `json:"telephone"`
}

// Rating carries the review metadata of an entry. Fields are pointers
// because the directory omits them for unreviewed providers.
type Rating struct {
	Average     *float64 `json:"average"`
	ReviewCount *int     `json:"review_count"`
	BestRating  *float64 `json:"best_rating"`
	WorstRating *float64 `json:"worst_rating"`
	RatingValue *float64 `json:"rating_value"`
}

// Company is one provider entry of a directory listing page.
type Company struct {
	Title          string   `json:"title"`
	ProfileURL     string   `json:"profile_url"`
	MinProjectSize string   `json:"min_project_size"`
	HourlyRate     string   `json:"hourly_rate"`
	Employees      string   `json:"employees"`
	Location       string   `json:"location,omitempty"`
	Services       []string `json:"services"`
	Focus          []string `json:"focus"`
	Address        Address  `json:"address"`
	Rating         Rating   `json:"rating"`
}

// ExtractCompanies parses a listing page and returns every provider entry
// whose required fields are all present. Entries with missing fields are
// logged and skipped rather than failing the page.
func ExtractCompanies(html string) ([]Company, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	list := doc.Find("ul.providers__list#providers__list").First()
	if list.Length() == 0 {
		log.Warn("provider list not found on page")
		return nil, nil
	}

	items := list.Find("li.provider-list-item")
	log.Debug("provider items found", "count", items.Length())

	companies := make([]Company, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		company, ok := extractCompany(item)
		if !ok {
			log.Warn("skipping provider item with missing fields",
				"title", optionalText(item, "a.provider__title-link"))
			return
		}
		companies = append(companies, company)
	})

	return companies, nil
}

func extractCompany(item *goquery.Selection) (Company, bool) {
	title, ok := requiredText(item, "a.provider__title-link")
	if !ok {
		return Company{}, false
	}
	profileURL, ok := item.Find("a.provider__title-link").First().Attr("href")
	if !ok {
		return Company{}, false
	}
	minProjectSize, ok := requiredText(item, "div.provider__highlights-item.min-project-size")
	if !ok {
		return Company{}, false
	}
	hourlyRate, ok := requiredText(item, "div.provider__highlights-item.hourly-rate")
	if !ok {
		return Company{}, false
	}
	employees, ok := requiredText(item, "div.provider__highlights-item.employees-count")
	if !ok {
		return Company{}, false
	}
	address, ok := extractAddress(item)
	if !ok {
		return Company{}, false
	}

	return Company{
		Title:          title,
		ProfileURL:     profileURL,
		MinProjectSize: minProjectSize,
		HourlyRate:     hourlyRate,
		Employees:      employees,
		Location:       optionalText(item, "span.locality"),
		Services:       tooltipValues(item, ".provider__services--provided .provider__services-chart-item"),
		Focus:          tooltipValues(item, ".provider__services--focus-areas .provider__services-chart-item"),
		Address:        address,
		Rating:         extractRating(item),
	}, true
}

func extractAddress(item *goquery.Selection) (Address, bool) {
	var addr Address
	fields := []struct {
		prop string
		dst  *string
	}{
		{"addressCountry", &addr.Country},
		{"addressLocality", &addr.Locality},
		{"addressRegion", &addr.Region},
		{"streetAddress", &addr.Street},
		{"postalCode", &addr.PostalCode},
		{"telephone", &addr.Telephone},
	}
	for _, f := range fields {
		value, ok := metaContent(item, f.prop)
		if !ok {
			return Address{}, false
		}
		*f.dst = value
	}
	return addr, true
}

func extractRating(item *goquery.Selection) Rating {
	return Rating{
		Average:     floatText(item, "span.sg-rating__number"),
		ReviewCount: intMeta(item, "reviewCount"),
		BestRating:  floatMeta(item, "bestRating"),
		WorstRating: floatMeta(item, "worstRating"),
		RatingValue: floatMeta(item, "ratingValue"),
	}
}

/* ─────────────────────────────  helpers  ────────────────────────────────── */

func requiredText(item *goquery.Selection, selector string) (string, bool) {
	found := item.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(found.Text()), true
}

func optionalText(item *goquery.Selection, selector string) string {
	text, _ := requiredText(item, selector)
	return text
}

// tooltipValues collects chart tooltips, stripping the italic markup the
// directory embeds in them.
func tooltipValues(item *goquery.Selection, selector string) []string {
	var values []string
	item.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if tooltip, ok := s.Attr("data-tooltip-content"); ok {
			tooltip = strings.ReplaceAll(tooltip, "<i>", "")
			tooltip = strings.ReplaceAll(tooltip, "</i>", "")
			values = append(values, tooltip)
		}
	})
	return values
}

func metaContent(item *goquery.Selection, prop string) (string, bool) {
	return item.Find("meta[itemprop='" + prop + "']").First().Attr("content")
}

func floatText(item *goquery.Selection, selector string) *float64 {
	text, ok := requiredText(item, selector)
	if !ok {
		return nil
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return &n
}

func floatMeta(item *goquery.Selection, prop string) *float64 {
	content, ok := metaContent(item, prop)
	if !ok {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
	if err != nil {
		return nil
	}
	return &n
}

func intMeta(item *goquery.Selection, prop string) *int {
	content, ok := metaContent(item, prop)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil {
		return nil
	}
	return &n
}
