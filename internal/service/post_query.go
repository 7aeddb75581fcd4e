package service

import (
	"strconv"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// Paging bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PostFilters are the raw list filters as they arrive on the query string.
type PostFilters struct {
	Search   string
	Category string
	Author   string
	Status   string
}

// Paging is a clamped page request.
type Paging struct {
	Page     int
	PageSize int
}

// Offset is the number of rows skipped before the page.
func (p Paging) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ClampPaging forces page >= 1 and 1 <= pageSize <= MaxPageSize. A zero or
// negative size means DefaultPageSize.
func ClampPaging(page, pageSize int) Paging {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return Paging{Page: page, PageSize: pageSize}
}

// ParseSort maps a sort key to a supported ordering, falling back to newest.
func ParseSort(raw string) repository.PostSort {
	switch repository.PostSort(strings.ToLower(strings.TrimSpace(raw))) {
	case repository.SortOldest:
		return repository.SortOldest
	case repository.SortPopular:
		return repository.SortPopular
	case repository.SortTitle:
		return repository.SortTitle
	default:
		return repository.SortNewest
	}
}

// BuildPostQuery turns raw filters into a repository query. The status filter
// is clamped through ScopeFor so no caller can widen their own visibility.
// Category and author must be numeric ids when present.
func BuildPostQuery(identity *models.User, f PostFilters, sort string, page, pageSize int) (repository.PostQuery, Paging, error) {
	paging := ClampPaging(page, pageSize)
	q := repository.PostQuery{
		Search:   strings.TrimSpace(f.Search),
		Statuses: ScopeFor(identity, f.Status),
		Sort:     ParseSort(sort),
		Limit:    paging.PageSize,
		Offset:   paging.Offset(),
	}
	if identity != nil {
		q.ViewerID = identity.ID
	}

	var err error
	if q.CategoryID, err = parseOptionalID(f.Category); err != nil {
		return repository.PostQuery{}, paging, models.NewValidationError("Invalid category ID")
	}
	if q.AuthorID, err = parseOptionalID(f.Author); err != nil {
		return repository.PostQuery{}, paging, models.NewValidationError("Invalid author ID")
	}
	return q, paging, nil
}

// parseOptionalID reads an id filter. Empty and "all" mean no filter.
func parseOptionalID(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return nil, strconv.ErrSyntax
	}
	id := uint(n)
	return &id, nil
}

// PostPage is one page of a post listing.
type PostPage struct {
	Items      []*models.Post `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
	HasNext    bool           `json:"hasNext"`
	HasPrev    bool           `json:"hasPrev"`
}

// NewPostPage computes the paging summary for a result set.
func NewPostPage(items []*models.Post, total int64, paging Paging) *PostPage {
	if items == nil {
		items = []*models.Post{}
	}
	totalPages := int((total + int64(paging.PageSize) - 1) / int64(paging.PageSize))
	return &PostPage{
		Items:      items,
		Total:      total,
		Page:       paging.Page,
		PageSize:   paging.PageSize,
		TotalPages: totalPages,
		HasNext:    paging.Page < totalPages,
		HasPrev:    paging.Page > 1,
	}
}

// Pagination converts the page summary into the response envelope block.
func (p *PostPage) Pagination() *models.Pagination {
	return &models.Pagination{
		Page:        p.Page,
		Limit:       p.PageSize,
		Total:       p.Total,
		TotalPages:  p.TotalPages,
		HasNextPage: p.HasNext,
		HasPrevPage: p.HasPrev,
	}
}
