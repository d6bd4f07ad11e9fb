package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/discovery/internal/model"
	"jobmate/discovery/internal/scraper"
)

// ── ExtractListing ────────────────────────────────────────────────────────

func TestExtractListing_Fields(t *testing.T) {
	body := listingPage(
		card{id: "3912345678", title: "Go Engineer", company: "Acme\nCorp", location: "Berlin, Germany", date: "2024-05-01"},
		card{id: "3912345679", title: "SRE", company: "Beta", location: "Remote", date: "2024-05-02", newDate: true},
	)

	records, errs := scraper.ExtractListing(body)
	require.Empty(t, errs)
	require.Len(t, records, 2)

	assert.Equal(t, model.JobRecord{
		Title:      "Go Engineer",
		Company:    "Acme Corp",
		Location:   "Berlin, Germany",
		PostedDate: "2024-05-01",
		SourceURL:  "https://www.linkedin.com/jobs/view/3912345678/",
	}, records[0])
	assert.Equal(t, "2024-05-02", records[1].PostedDate, "newer date marker is accepted")
}

func TestExtractListing_MissingDateIsEmpty(t *testing.T) {
	records, errs := scraper.ExtractListing(listingPage(card{id: "1", title: "A", company: "a"}))
	require.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].PostedDate)
}

func TestExtractListing_MalformedIDSkipsOnlyThatCard(t *testing.T) {
	body := listingPage(
		card{id: "not-a-number", title: "Broken", company: "x"},
		card{id: "42", title: "Fine", company: "y"},
	)
	records, errs := scraper.ExtractListing(body)

	require.Len(t, records, 1)
	assert.Equal(t, "Fine", records[0].Title)
	require.Len(t, errs, 1)
	var ee *scraper.ExtractionError
	require.ErrorAs(t, errs[0], &ee)
	assert.Equal(t, 0, ee.Card)
}

func TestExtractListing_EmptyBody(t *testing.T) {
	records, errs := scraper.ExtractListing(nil)
	assert.Empty(t, records)
	assert.Empty(t, errs)

	records, errs = scraper.ExtractListing([]byte("<html><body>no jobs</body></html>"))
	assert.Empty(t, records)
	assert.Empty(t, errs)
}

// ── ExtractDetail ─────────────────────────────────────────────────────────

func TestExtractDetail_DescriptionAndCriteria(t *testing.T) {
	body := detailPage(
		`<strong>About the role</strong><br><ul><li>Build Go services</li><li>Own <em>SQL</em> schemas</li></ul><span>decorative</span>`,
		map[string]string{"Seniority level": "Mid-Senior level", "Employment type": "Full-time", "Job function": "Engineering", "Industries": "Software Development"},
	)

	d := scraper.ExtractDetail(body)
	assert.Contains(t, d.Description, "**About the role**")
	assert.Contains(t, d.Description, "- Build Go services")
	assert.Contains(t, d.Description, "_SQL_")
	assert.NotContains(t, d.Description, "decorative")
	assert.NotContains(t, d.Description, "Show more")
	assert.NotContains(t, d.Description, "Show less")

	assert.Equal(t, map[string]string{
		"seniority_level": "Mid-Senior level",
		"employment_type": "Full-time",
		"job_function":    "Engineering",
		"industries":      "Software Development",
	}, d.Criteria)

	var r model.JobRecord
	d.Apply(&r)
	assert.Equal(t, "Mid-Senior level", r.SeniorityLevel)
	assert.Equal(t, "Full-time", r.EmploymentType)
	assert.Equal(t, "Engineering", r.JobFunction)
	assert.Equal(t, "Software Development", r.Industries)
	assert.Equal(t, d.Description, r.Description)
}

func TestExtractDetail_MissingContainer(t *testing.T) {
	d := scraper.ExtractDetail([]byte("<html><body><p>blocked</p></body></html>"))
	assert.Equal(t, scraper.DescriptionNotFound, d.Description)
	assert.Empty(t, d.Criteria)
}

func TestExtractDetail_PartialCriteria(t *testing.T) {
	d := scraper.ExtractDetail(detailPage("<p>text</p>", map[string]string{"Seniority level": "Internship"}))

	var r model.JobRecord
	d.Apply(&r)
	assert.Equal(t, "Internship", r.SeniorityLevel)
	assert.Empty(t, r.EmploymentType)
	assert.Equal(t, "text", r.Description)
}
