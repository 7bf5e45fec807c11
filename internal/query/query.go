// Package query builds validated, bounded task list queries. It shapes
// filter, sort and pagination input into GORM scopes; executing them is
// the repository's job.
package query

import (
	"strings"

	"gorm.io/gorm"

	"github.com/taskdeck/taskdeck/internal/model"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	SortByCreatedAt = "createdAt"
	SortByTitle     = "title"
	SortByStatus    = "status"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// sortColumns whitelists sortable fields and maps them to columns.
var sortColumns = map[string]string{
	SortByCreatedAt: "created_at",
	SortByTitle:     "title",
	SortByStatus:    "status",
}

// Params are the raw list parameters as supplied by the caller. Call
// Normalize before building scopes.
type Params struct {
	Page      int
	Limit     int
	Status    model.TaskStatus
	Search    string
	SortBy    string
	SortOrder string
}

// Normalize clamps and defaults the parameters in place. Out-of-range
// values are coerced, never rejected: page and limit floor at 1, limit
// is capped at MaxLimit, unknown sort fields fall back to createdAt
// descending. Defaulting an absent limit to DefaultLimit is the
// transport layer's job; by the time params reach here a limit below 1
// was explicitly supplied.
func (p *Params) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if _, ok := sortColumns[p.SortBy]; !ok {
		p.SortBy = SortByCreatedAt
	}
	if p.SortOrder != OrderAsc && p.SortOrder != OrderDesc {
		p.SortOrder = OrderDesc
	}
	if !p.Status.IsValid() {
		p.Status = ""
	}
}

// Filter returns a scope restricting rows by status and title search.
// The search is a case-insensitive substring match on title only.
func (p Params) Filter() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Status != "" {
			db = db.Where("status = ?", p.Status)
		}
		if p.Search != "" {
			db = db.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(p.Search)+"%")
		}
		return db
	}
}

// Sort returns a scope applying the requested ordering. Sorting by status
// adds created_at DESC as a secondary key so rows with equal status come
// back in a deterministic order.
func (p Params) Sort() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Order(sortColumns[p.SortBy] + " " + p.SortOrder)
		if p.SortBy == SortByStatus {
			db = db.Order("created_at DESC")
		}
		return db
	}
}

// Paginate returns a scope applying offset/limit for the requested page.
func (p Params) Paginate() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
	}
}

// Pagination is the page metadata returned alongside a task listing.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes page metadata. TotalPages is ceil(total/limit),
// zero when there are no rows.
func NewPagination(total int64, page, limit int) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
