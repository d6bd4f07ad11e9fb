package scraper

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobmate/discovery/internal/model"
)

// DescriptionNotFound replaces the description when the detail page has no
// description container or could not be fetched.
const DescriptionNotFound = "Could not find Job Description"

const jobViewURL = "https://www.linkedin.com/jobs/view/%s/"

// ExtractionError reports a listing card that could not be turned into a
// record. Only that card is skipped.
type ExtractionError struct {
	Card   int // 0-based position on the page
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("card %d: %s", e.Card, e.Reason)
}

// DateParseError reports a posting date that does not match
// model.PostedDateLayout.
type DateParseError struct {
	SourceURL string
	Value     string
	Err       error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("posted date %q of %s: %v", e.Value, e.SourceURL, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// ExtractListing parses the job cards of one listing page. A page that is
// empty or not HTML yields no records and no errors.
func ExtractListing(body []byte) ([]model.JobRecord, []error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, []error{fmt.Errorf("parse listing page: %w", err)}
	}

	var (
		records []model.JobRecord
		errs    []error
	)
	doc.Find("div.base-search-card__info").Each(func(i int, card *goquery.Selection) {
		r, err := extractCard(card)
		if err != nil {
			errs = append(errs, &ExtractionError{Card: i, Reason: err.Error()})
			return
		}
		records = append(records, r)
	})
	return records, errs
}

func extractCard(card *goquery.Selection) (model.JobRecord, error) {
	titleSel := card.Find("h3").First()
	if titleSel.Length() == 0 {
		return model.JobRecord{}, fmt.Errorf("missing title")
	}

	urn, ok := card.Parent().Attr("data-entity-urn")
	if !ok || urn == "" {
		return model.JobRecord{}, fmt.Errorf("missing data-entity-urn")
	}
	id := urn[strings.LastIndex(urn, ":")+1:]
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return model.JobRecord{}, fmt.Errorf("malformed posting id in %q", urn)
	}

	company := strings.TrimSpace(card.Find("a.hidden-nested-link").First().Text())
	company = strings.ReplaceAll(company, "\n", " ")

	return model.JobRecord{
		Title:      strings.TrimSpace(titleSel.Text()),
		Company:    company,
		Location:   strings.TrimSpace(card.Find("span.job-search-card__location").First().Text()),
		PostedDate: listingDate(card),
		SourceURL:  fmt.Sprintf(jobViewURL, id),
	}, nil
}

func listingDate(card *goquery.Selection) string {
	for _, sel := range []string{"time.job-search-card__listdate", "time.job-search-card__listdate--new"} {
		if v, ok := card.Find(sel).First().Attr("datetime"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Detail is what the detail page contributes to a record.
type Detail struct {
	Description string
	Criteria    map[string]string
}

// ExtractDetail parses a job detail page.
func ExtractDetail(body []byte) Detail {
	d := Detail{Description: DescriptionNotFound, Criteria: map[string]string{}}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return d
	}

	doc.Find("ul.description__job-criteria-list li.description__job-criteria-item").Each(func(_ int, item *goquery.Selection) {
		header := item.Find("h3.description__job-criteria-subheader").First()
		value := item.Find("span.description__job-criteria-text").First()
		if header.Length() == 0 || value.Length() == 0 {
			return
		}
		d.Criteria[criteriaKey(header.Text())] = strings.TrimSpace(value.Text())
	})

	container := doc.Find("div.description__text.description__text--rich").First()
	if container.Length() == 0 {
		return d
	}
	container.Find("span").Remove()
	container.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		text := a.Text()
		return strings.Contains(text, "Show more") || strings.Contains(text, "Show less")
	}).Remove()

	html, err := goquery.OuterHtml(container)
	if err != nil {
		return d
	}
	if text, err := toMarkdown(html); err == nil {
		d.Description = text
	}
	return d
}

// criteriaKey turns "Seniority level" into "seniority_level".
func criteriaKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// Apply copies the description and the known criteria onto r.
func (d Detail) Apply(r *model.JobRecord) {
	r.Description = d.Description
	if v, ok := d.Criteria["seniority_level"]; ok {
		r.SeniorityLevel = v
	}
	if v, ok := d.Criteria["employment_type"]; ok {
		r.EmploymentType = v
	}
	if v, ok := d.Criteria["job_function"]; ok {
		r.JobFunction = v
	}
	if v, ok := d.Criteria["industries"]; ok {
		r.Industries = v
	}
}
