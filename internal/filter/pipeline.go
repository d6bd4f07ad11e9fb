// Package filter classifies enriched job records into accepted and rejected
// sets using the configured keyword and language lists.
package filter

import (
	"fmt"

	"jobmate/discovery/internal/model"
)

// Stage names, in canonical order.
const (
	StageDescription  = "description_exclude"
	StageTitleExclude = "title_exclude"
	StageTitleInclude = "title_include"
	StageLanguage     = "language"
	StageCompany      = "company_exclude"
	StageSeniority    = "seniority_exclude"
)

// Stage is a single keep/drop predicate.
type Stage struct {
	Name string
	Keep func(model.JobRecord) bool
}

// Pipeline applies its stages in order. Stages whose list is empty are not
// part of the pipeline at all.
type Pipeline struct {
	stages []Stage
}

// New builds the pipeline for cfg. It fails only on an unparseable language.
func New(cfg model.FilterConfig) (*Pipeline, error) {
	p := &Pipeline{}

	if len(cfg.DescriptionExclude) > 0 {
		words := cfg.DescriptionExclude
		p.add(StageDescription, func(j model.JobRecord) bool {
			return !ContainsAny(j.Description, words)
		})
	}
	if len(cfg.TitleExclude) > 0 {
		words := cfg.TitleExclude
		p.add(StageTitleExclude, func(j model.JobRecord) bool {
			return !ContainsAny(j.Title, words)
		})
	}
	if len(cfg.TitleInclude) > 0 {
		words := cfg.TitleInclude
		p.add(StageTitleInclude, func(j model.JobRecord) bool {
			return ContainsAny(j.Title, words)
		})
	}
	if len(cfg.Languages) > 0 {
		allowed, err := normalizeLanguages(cfg.Languages)
		if err != nil {
			return nil, err
		}
		p.add(StageLanguage, func(j model.JobRecord) bool {
			return allowed[DetectLanguage(j.Description)]
		})
	}
	if len(cfg.CompanyExclude) > 0 {
		words := cfg.CompanyExclude
		p.add(StageCompany, func(j model.JobRecord) bool {
			return !ContainsAny(j.Company, words)
		})
	}
	if len(cfg.SeniorityExclude) > 0 {
		words := cfg.SeniorityExclude
		p.add(StageSeniority, func(j model.JobRecord) bool {
			return j.SeniorityLevel == "" || !ContainsAny(j.SeniorityLevel, words)
		})
	}
	return p, nil
}

func (p *Pipeline) add(name string, keep func(model.JobRecord) bool) {
	p.stages = append(p.stages, Stage{Name: name, Keep: keep})
}

// Stages returns the active stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// WithOrder returns a copy of p running the same stages in the given order.
// names must be a permutation of Stages().
func (p *Pipeline) WithOrder(names ...string) (*Pipeline, error) {
	if len(names) != len(p.stages) {
		return nil, fmt.Errorf("expected %d stage names, got %d", len(p.stages), len(names))
	}
	byName := make(map[string]Stage, len(p.stages))
	for _, s := range p.stages {
		byName[s.Name] = s
	}
	out := &Pipeline{stages: make([]Stage, 0, len(names))}
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown or repeated stage %q", n)
		}
		delete(byName, n)
		out.stages = append(out.stages, s)
	}
	return out, nil
}

// Reject returns the name of the first stage that drops r, if any.
func (p *Pipeline) Reject(r model.JobRecord) (string, bool) {
	for _, s := range p.stages {
		if !s.Keep(r) {
			return s.Name, true
		}
	}
	return "", false
}

// Apply returns the records that pass every stage, preserving order.
func (p *Pipeline) Apply(records []model.JobRecord) []model.JobRecord {
	kept, _ := p.Partition(records)
	return kept
}

// Partition splits records into those passing every stage and those rejected
// by at least one. Both keep input order.
func (p *Pipeline) Partition(records []model.JobRecord) (kept, rejected []model.JobRecord) {
	kept = make([]model.JobRecord, 0, len(records))
	for _, r := range records {
		if _, drop := p.Reject(r); drop {
			rejected = append(rejected, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, rejected
}

// Counts tallies rejections per stage for logging.
func (p *Pipeline) Counts(records []model.JobRecord) map[string]int {
	counts := make(map[string]int, len(p.stages))
	for _, r := range records {
		if name, drop := p.Reject(r); drop {
			counts[name]++
		}
	}
	return counts
}
