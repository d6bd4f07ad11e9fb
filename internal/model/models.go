// Package model defines shared data structures for the discovery service.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WorkType mirrors the listing source's f_WT search parameter.
type WorkType int

const (
	WorkTypeAny    WorkType = 0
	WorkTypeOnSite WorkType = 1
	WorkTypeRemote WorkType = 2
	WorkTypeHybrid WorkType = 3
)

func (w WorkType) String() string {
	switch w {
	case WorkTypeOnSite:
		return "onsite"
	case WorkTypeRemote:
		return "remote"
	case WorkTypeHybrid:
		return "hybrid"
	}
	return "any"
}

// Param returns the value sent as f_WT; WorkTypeAny is sent empty.
func (w WorkType) Param() string {
	if w == WorkTypeAny {
		return ""
	}
	return strconv.Itoa(int(w))
}

// ParseWorkType accepts either the numeric f_WT code or its name.
func ParseWorkType(s string) (WorkType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "any":
		return WorkTypeAny, nil
	case "1", "onsite", "on-site":
		return WorkTypeOnSite, nil
	case "2", "remote":
		return WorkTypeRemote, nil
	case "3", "hybrid":
		return WorkTypeHybrid, nil
	}
	return WorkTypeAny, fmt.Errorf("unknown work type %q", s)
}

// SearchQuery is one configured search. Immutable once loaded.
type SearchQuery struct {
	Keywords string
	Location string
	WorkType WorkType
}

// JobRecord is a job posting as it travels from listing card to storage row.
//
// Content fields stay empty until the detail page has been fetched. Workflow
// fields belong to the review surface; the pipeline only ever writes their
// defaults on first insert.
type JobRecord struct {
	ID int64 `json:"id,omitempty"`

	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	PostedDate string `json:"postedDate"` // YYYY-MM-DD as published by the source
	SourceURL  string `json:"sourceUrl"`

	Description    string `json:"description,omitempty"`
	SeniorityLevel string `json:"seniorityLevel,omitempty"`
	EmploymentType string `json:"employmentType,omitempty"`
	JobFunction    string `json:"jobFunction,omitempty"`
	Industries     string `json:"industries,omitempty"`

	Applied        bool   `json:"applied"`
	Hidden         bool   `json:"hidden"`
	Interview      bool   `json:"interview"`
	Rejected       bool   `json:"rejected"`
	Starred        bool   `json:"starred"`
	Notes          string `json:"notes,omitempty"`
	TailoredResume string `json:"tailoredResume,omitempty"`

	LoadedAt time.Time `json:"loadedAt,omitempty"`
}

// PostedDateLayout is the layout of JobRecord.PostedDate.
const PostedDateLayout = "2006-01-02"

// Posted parses PostedDate.
func (j JobRecord) Posted() (time.Time, error) {
	return time.Parse(PostedDateLayout, j.PostedDate)
}

// GroupKey is the intra-batch duplicate key.
type GroupKey struct {
	Title   string
	Company string
}

// IdentityKey is the cross-run duplicate key used when URLs are unstable.
type IdentityKey struct {
	Title      string
	Company    string
	PostedDate string
}

func (j JobRecord) GroupKey() GroupKey {
	return GroupKey{Title: j.Title, Company: j.Company}
}

func (j JobRecord) IdentityKey() IdentityKey {
	return IdentityKey{Title: j.Title, Company: j.Company, PostedDate: j.PostedDate}
}

// FilterConfig lists the keyword sets of the filter pipeline. An empty list
// disables its stage.
type FilterConfig struct {
	DescriptionExclude []string `json:"desc_words"`
	TitleInclude       []string `json:"title_include"`
	TitleExclude       []string `json:"title_exclude"`
	CompanyExclude     []string `json:"company_exclude"`
	Languages          []string `json:"languages"`
	SeniorityExclude   []string `json:"seniority_exclude"`
}
