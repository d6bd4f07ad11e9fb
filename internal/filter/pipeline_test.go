package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/discovery/internal/filter"
	"jobmate/discovery/internal/model"
)

const (
	englishText = "We are looking for an experienced software engineer who enjoys building reliable backend services and working closely with the product team every day."
	germanText  = "Wir suchen eine erfahrene Softwareentwicklerin, die gerne zuverlässige Backend-Dienste baut und jeden Tag eng mit dem Produktteam zusammenarbeitet. Wir bieten flexible Arbeitszeiten, ein modernes Büro in Berlin und viele Möglichkeiten zur Weiterbildung."
)

func rec(title, company, desc, seniority string) model.JobRecord {
	return model.JobRecord{Title: title, Company: company, Description: desc, SeniorityLevel: seniority}
}

func titles(records []model.JobRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Title)
	}
	return out
}

// ── Individual stages ─────────────────────────────────────────────────────

func TestPipeline_EmptyConfigKeepsEverything(t *testing.T) {
	p, err := filter.New(model.FilterConfig{})
	require.NoError(t, err)
	assert.Empty(t, p.Stages())

	in := []model.JobRecord{rec("a", "b", "", ""), rec("c", "d", "", "")}
	assert.Equal(t, in, p.Apply(in))
}

func TestPipeline_DescriptionExcludeIsCaseInsensitive(t *testing.T) {
	p, err := filter.New(model.FilterConfig{DescriptionExclude: []string{"clearance"}})
	require.NoError(t, err)

	kept, rejected := p.Partition([]model.JobRecord{
		rec("A", "x", "Security CLEARANCE required", ""),
		rec("B", "x", "nothing special", ""),
	})
	assert.Equal(t, []string{"B"}, titles(kept))
	assert.Equal(t, []string{"A"}, titles(rejected))
}

func TestPipeline_TitleExcludeBeatsInclude(t *testing.T) {
	p, err := filter.New(model.FilterConfig{
		TitleInclude: []string{"engineer"},
		TitleExclude: []string{"senior"},
	})
	require.NoError(t, err)

	got := p.Apply([]model.JobRecord{
		rec("Senior Engineer", "x", "", ""),
		rec("Engineer", "x", "", ""),
		rec("Designer", "x", "", ""),
	})
	assert.Equal(t, []string{"Engineer"}, titles(got))
}

func TestPipeline_CompanyExclude(t *testing.T) {
	p, err := filter.New(model.FilterConfig{CompanyExclude: []string{"staffing"}})
	require.NoError(t, err)

	got := p.Apply([]model.JobRecord{rec("A", "Acme Staffing Ltd", "", ""), rec("B", "Acme", "", "")})
	assert.Equal(t, []string{"B"}, titles(got))
}

func TestPipeline_SeniorityMissingNeverExcluded(t *testing.T) {
	p, err := filter.New(model.FilterConfig{SeniorityExclude: []string{"director", "executive"}})
	require.NoError(t, err)

	got := p.Apply([]model.JobRecord{
		rec("A", "x", "", "Director"),
		rec("B", "x", "", ""),
		rec("C", "x", "", "Mid-Senior level"),
	})
	assert.Equal(t, []string{"B", "C"}, titles(got))
}

func TestPipeline_LanguageStage(t *testing.T) {
	p, err := filter.New(model.FilterConfig{Languages: []string{"EN", "en-US"}})
	require.NoError(t, err)

	got := p.Apply([]model.JobRecord{
		rec("english", "x", englishText, ""),
		rec("german", "x", germanText, ""),
		rec("empty", "x", "", ""),
	})
	assert.Equal(t, []string{"english", "empty"}, titles(got), "undetectable text defaults to English")
}

func TestPipeline_InvalidLanguage(t *testing.T) {
	_, err := filter.New(model.FilterConfig{Languages: []string{"not a language!"}})
	assert.Error(t, err)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "en", filter.DetectLanguage(englishText))
	assert.Equal(t, "de", filter.DetectLanguage(germanText))
	assert.Equal(t, "en", filter.DetectLanguage("   "))

	for _, short := range []string{"We are hiring", "Remote role.", "Go Engineer"} {
		assert.Equal(t, "en", filter.DetectLanguage(short), short)
	}
}

func TestPipeline_LanguageKeepsAmbiguousDescriptions(t *testing.T) {
	p, err := filter.New(model.FilterConfig{Languages: []string{"en"}})
	require.NoError(t, err)

	kept, rejected := p.Partition([]model.JobRecord{
		rec("a", "x", "We are hiring", ""),
		rec("b", "x", "Remote role.", ""),
		rec("c", "x", "Go Engineer", ""),
		rec("d", "x", germanText, ""),
	})
	assert.Equal(t, []string{"a", "b", "c"}, titles(kept))
	assert.Equal(t, []string{"d"}, titles(rejected))
}

// ── Ordering ──────────────────────────────────────────────────────────────

func TestPipeline_StageOrderIsCanonical(t *testing.T) {
	p, err := filter.New(model.FilterConfig{
		SeniorityExclude:   []string{"x"},
		CompanyExclude:     []string{"x"},
		Languages:          []string{"en"},
		TitleInclude:       []string{"x"},
		TitleExclude:       []string{"x"},
		DescriptionExclude: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filter.StageDescription, filter.StageTitleExclude, filter.StageTitleInclude,
		filter.StageLanguage, filter.StageCompany, filter.StageSeniority,
	}, p.Stages())
}

func TestPipeline_OrderIndependence(t *testing.T) {
	p, err := filter.New(model.FilterConfig{
		DescriptionExclude: []string{"clearance"},
		TitleExclude:       []string{"intern"},
		Languages:          []string{"en"},
		CompanyExclude:     []string{"recruit"},
		SeniorityExclude:   []string{"director"},
	})
	require.NoError(t, err)

	batch := []model.JobRecord{
		rec("Go Engineer", "Acme", englishText, "Mid-Senior level"),
		rec("Go Intern", "Acme", englishText, ""),
		rec("Backend Dev", "Recruiters Inc", englishText, ""),
		rec("Platform Lead", "Beta", englishText+" clearance", ""),
		rec("Engineering Director", "Gamma", englishText, "Director"),
		rec("Entwickler", "Delta", germanText, "Entry level"),
		rec("SRE", "Epsilon", englishText, ""),
	}
	want := p.Apply(batch)
	require.Equal(t, []string{"Go Engineer", "SRE"}, titles(want))

	for _, order := range permutations(p.Stages()) {
		reordered, err := p.WithOrder(order...)
		require.NoError(t, err)
		assert.Equal(t, want, reordered.Apply(batch), "order %v", order)
	}
}

func TestPipeline_WithOrderRejectsUnknownStage(t *testing.T) {
	p, err := filter.New(model.FilterConfig{TitleExclude: []string{"x"}})
	require.NoError(t, err)

	_, err = p.WithOrder(filter.StageCompany)
	assert.Error(t, err)
	_, err = p.WithOrder()
	assert.Error(t, err)
}

func TestPipeline_Counts(t *testing.T) {
	p, err := filter.New(model.FilterConfig{TitleExclude: []string{"intern"}, CompanyExclude: []string{"acme"}})
	require.NoError(t, err)

	counts := p.Counts([]model.JobRecord{
		rec("Intern", "Acme", "", ""),
		rec("Dev", "Acme", "", ""),
		rec("Dev", "Beta", "", ""),
	})
	assert.Equal(t, map[string]int{filter.StageTitleExclude: 1, filter.StageCompany: 1}, counts)
}

func permutations(in []string) [][]string {
	if len(in) <= 1 {
		return [][]string{append([]string(nil), in...)}
	}
	var out [][]string
	for i := range in {
		rest := make([]string, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{in[i]}, p...))
		}
	}
	return out
}
