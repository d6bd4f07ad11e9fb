package scraper_test

import (
	"fmt"
	"strings"
)

type card struct {
	id, title, company, location, date string
	newDate                            bool // use the listdate--new marker
}

func listingPage(cards ...card) []byte {
	var b strings.Builder
	for _, c := range cards {
		dateClass := "job-search-card__listdate"
		if c.newDate {
			dateClass = "job-search-card__listdate--new"
		}
		date := ""
		if c.date != "" {
			date = fmt.Sprintf(`<time class="%s" datetime="%s">1 day ago</time>`, dateClass, c.date)
		}
		fmt.Fprintf(&b, `<li>
  <div class="base-card base-search-card" data-entity-urn="urn:li:jobPosting:%s">
    <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/%s"></a>
    <div class="base-search-card__info">
      <h3 class="base-search-card__title">
        %s
      </h3>
      <h4 class="base-search-card__subtitle"><a class="hidden-nested-link" href="#">%s</a></h4>
      <div class="base-search-card__metadata">
        <span class="job-search-card__location">%s</span>
        %s
      </div>
    </div>
  </div>
</li>
`, c.id, c.id, c.title, c.company, c.location, date)
	}
	return []byte(b.String())
}

func detailPage(description string, criteria map[string]string) []byte {
	var items strings.Builder
	for k, v := range criteria {
		fmt.Fprintf(&items, `<li class="description__job-criteria-item">
  <h3 class="description__job-criteria-subheader">%s</h3>
  <span class="description__job-criteria-text">%s</span>
</li>`, k, v)
	}
	return []byte(fmt.Sprintf(`<html><body>
<section class="description">
  <div class="description__text description__text--rich">
    <div class="show-more-less-html__markup">%s</div>
    <a class="show-more-less-html__button">Show more</a>
    <a class="show-more-less-html__button">Show less</a>
  </div>
  <ul class="description__job-criteria-list">%s</ul>
</section>
</body></html>`, description, items.String()))
}
