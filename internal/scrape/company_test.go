package scrape

import (
	"reflect"
	"testing"
)

const listingPage = `
<html><body>
<ul class="providers__list" id="providers__list">
  <li class="provider-list-item">
    <a class="provider__title-link" href="https://clutch.co/profile/acme">Acme Software</a>
    <div class="provider__highlights-item min-project-size">$10,000+</div>
    <div class="provider__highlights-item hourly-rate">$50 - $99 / hr</div>
    <div class="provider__highlights-item employees-count">10 - 49</div>
    <span class="locality">Berlin, Germany</span>
    <div class="provider__services--provided">
      <div class="provider__services-chart-item" data-tooltip-content="<i>40%</i> Custom Software Development"></div>
      <div class="provider__services-chart-item" data-tooltip-content="<i>60%</i> Web Development"></div>
    </div>
    <div class="provider__services--focus-areas">
      <div class="provider__services-chart-item" data-tooltip-content="<i>100%</i> Enterprise"></div>
    </div>
    <meta itemprop="addressCountry" content="Germany">
    <meta itemprop="addressLocality" content="Berlin">
    <meta itemprop="addressRegion" content="BE">
    <meta itemprop="streetAddress" content="Example Str. 1">
    <meta itemprop="postalCode" content="10115">
    <meta itemprop="telephone" content="+49 30 1234567">
    <span class="sg-rating__number">4.8</span>
    <meta itemprop="reviewCount" content="25">
    <meta itemprop="bestRating" content="5">
    <meta itemprop="worstRating" content="1">
    <meta itemprop="ratingValue" content="4.8">
  </li>
  <li class="provider-list-item">
    <a class="provider__title-link" href="/profile/broken">Broken Co</a>
  </li>
</ul>
</body></html>`

func TestExtractCompanies(t *testing.T) {
	companies, err := ExtractCompanies(listingPage)
	if err != nil {
		t.Fatalf("ExtractCompanies failed: %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("extracted %d companies, want 1 (the incomplete entry is skipped)", len(companies))
	}

	c := companies[0]
	if c.Title != "Acme Software" {
		t.Fatalf("title = %q", c.Title)
	}
	if c.ProfileURL != "https://clutch.co/profile/acme" {
		t.Fatalf("profile url = %q", c.ProfileURL)
	}
	if c.MinProjectSize != "$10,000+" {
		t.Fatalf("min project size = %q", c.MinProjectSize)
	}
	if c.HourlyRate != "$50 - $99 / hr" {
		t.Fatalf("hourly rate = %q", c.HourlyRate)
	}
	if c.Employees != "10 - 49" {
		t.Fatalf("employees = %q", c.Employees)
	}
	if c.Location != "Berlin, Germany" {
		t.Fatalf("location = %q", c.Location)
	}

	wantServices := []string{"40% Custom Software Development", "60% Web Development"}
	if !reflect.DeepEqual(c.Services, wantServices) {
		t.Fatalf("services = %v, want %v (italic markup stripped)", c.Services, wantServices)
	}
	wantFocus := []string{"100% Enterprise"}
	if !reflect.DeepEqual(c.Focus, wantFocus) {
		t.Fatalf("focus = %v, want %v", c.Focus, wantFocus)
	}

	wantAddress := Address{
		Country:    "Germany",
		Locality:   "Berlin",
		Region:     "BE",
		Street:     "Example Str. 1",
		PostalCode: "10115",
		Telephone:  "+49 30 1234567",
	}
	if c.Address != wantAddress {
		t.Fatalf("address = %+v, want %+v", c.Address, wantAddress)
	}

	if c.Rating.Average == nil || *c.Rating.Average != 4.8 {
		t.Fatalf("rating average = %v, want 4.8", c.Rating.Average)
	}
	if c.Rating.ReviewCount == nil || *c.Rating.ReviewCount != 25 {
		t.Fatalf("review count = %v, want 25", c.Rating.ReviewCount)
	}
	if c.Rating.BestRating == nil || *c.Rating.BestRating != 5 {
		t.Fatalf("best rating = %v, want 5", c.Rating.BestRating)
	}
}

func TestExtractCompaniesWithoutRating(t *testing.T) {
	page := `
<ul class="providers__list" id="providers__list">
  <li class="provider-list-item">
    <a class="provider__title-link" href="/profile/plain">Plain Co</a>
    <div class="provider__highlights-item min-project-size">$1,000+</div>
    <div class="provider__highlights-item hourly-rate">&lt; $25 / hr</div>
    <div class="provider__highlights-item employees-count">2 - 9</div>
    <meta itemprop="addressCountry" content="France">
    <meta itemprop="addressLocality" content="Paris">
    <meta itemprop="addressRegion" content="IDF">
    <meta itemprop="streetAddress" content="1 Rue Test">
    <meta itemprop="postalCode" content="75001">
    <meta itemprop="telephone" content="+33 1 23 45 67 89">
  </li>
</ul>`

	companies, err := ExtractCompanies(page)
	if err != nil {
		t.Fatalf("ExtractCompanies failed: %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("extracted %d companies, want 1", len(companies))
	}

	c := companies[0]
	if c.Location != "" {
		t.Fatalf("location = %q, want empty for an entry without one", c.Location)
	}
	if len(c.Services) != 0 || len(c.Focus) != 0 {
		t.Fatalf("services/focus = %v / %v, want empty", c.Services, c.Focus)
	}
	if c.Rating.Average != nil || c.Rating.ReviewCount != nil || c.Rating.RatingValue != nil {
		t.Fatalf("rating = %+v, want all fields unset", c.Rating)
	}
	if c.HourlyRate != "< $25 / hr" {
		t.Fatalf("hourly rate = %q, entities should be decoded", c.HourlyRate)
	}
}

func TestExtractCompaniesWithoutProviderList(t *testing.T) {
	companies, err := ExtractCompanies("<html><body><p>nothing here</p></body></html>")
	if err != nil {
		t.Fatalf("ExtractCompanies failed: %v", err)
	}
	if len(companies) != 0 {
		t.Fatalf("extracted %d companies from a page without a list", len(companies))
	}
}
