package models

import (
	"encoding/json"
)

// Story represents a single Hacker News item
type Story struct {
	ID    int    `json:"id"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	By    string `json:"by,omitempty"`
	Score int    `json:"score,omitempty"`
	Time  int64  `json:"time,omitempty"`
	Type  string `json:"type,omitempty"`
}

// HasURL reports whether the story links somewhere and may be surfaced
func (s *Story) HasURL() bool {
	return s != nil && s.URL != ""
}

// PagedResult is one page of a filtered story collection
type PagedResult struct {
	Items       []Story `json:"items"`
	TotalCount  int     `json:"totalCount"`
	CurrentPage int     `json:"currentPage"`
	PageSize    int     `json:"pageSize"`
}

// NewPagedResult builds a page, never leaving Items nil
func NewPagedResult(items []Story, totalCount, currentPage, pageSize int) *PagedResult {
	if items == nil {
		items = []Story{}
	}
	return &PagedResult{
		Items:       items,
		TotalCount:  totalCount,
		CurrentPage: currentPage,
		PageSize:    pageSize,
	}
}

// TotalPages is ceil(TotalCount / PageSize)
func (p *PagedResult) TotalPages() int {
	if p.PageSize <= 0 || p.TotalCount <= 0 {
		return 0
	}
	return (p.TotalCount-1)/p.PageSize + 1
}

// MarshalJSON adds the derived totalPages field
func (p PagedResult) MarshalJSON() ([]byte, error) {
	type alias PagedResult
	items := p.Items
	if items == nil {
		items = []Story{}
	}
	a := alias(p)
	a.Items = items
	return json.Marshal(struct {
		alias
		TotalPages int `json:"totalPages"`
	}{
		alias:      a,
		TotalPages: p.TotalPages(),
	})
}
