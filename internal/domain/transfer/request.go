package transfer

import (
	"strings"
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

// LineRequest asks for a quantity of one product.
type LineRequest struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
}

// CreateRequest is the input of Create. Notes is the only optional field.
type CreateRequest struct {
	DestinationBranchID id.ID         `json:"destinationBranchId"`
	Lines               []LineRequest `json:"lines"`
	Notes               string        `json:"notes,omitempty"`
}

// MaxNotesLength bounds free-text notes.
const MaxNotesLength = 500

// Normalize applies defaults and structural checks.
// Per-line quantity and product checks run during allocation.
func (r *CreateRequest) Normalize() error {
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > MaxNotesLength {
		return apperror.NewValidation("notes too long").
			WithDetail("field", "notes").
			WithDetail("max", MaxNotesLength)
	}
	if id.IsNil(r.DestinationBranchID) {
		return apperror.NewValidation("destination branch is required").
			WithDetail("field", "destinationBranchId")
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, l := range r.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// ListFilter narrows transfer listings.
type ListFilter struct {
	DateFrom            *time.Time `json:"dateFrom,omitempty"`
	DateTo              *time.Time `json:"dateTo,omitempty"`
	DestinationBranchID *id.ID     `json:"destinationBranchId,omitempty"`
	Status              *Status    `json:"status,omitempty"`

	// Search matches the transfer number, case-insensitive substring.
	Search string `json:"search,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// VisibleTo restricts results to transfers touching this branch. Set by the service.
	VisibleTo *id.ID `json:"-"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Normalize applies paging defaults.
func (f *ListFilter) Normalize() error {
	f.Search = strings.TrimSpace(f.Search)
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return apperror.NewValidation("dateTo is before dateFrom").WithDetail("field", "dateTo")
	}
	if f.Status != nil {
		if _, err := ParseStatus(string(*f.Status)); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether t passes the filter. Stores without a query language use it.
func (f ListFilter) Matches(t *Transfer) bool {
	if f.DateFrom != nil && t.RequestedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.RequestedAt.After(*f.DateTo) {
		return false
	}
	if f.DestinationBranchID != nil && t.DestinationBranchID != *f.DestinationBranchID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Number), strings.ToLower(f.Search)) {
		return false
	}
	if f.VisibleTo != nil && t.SourceBranchID != *f.VisibleTo && t.DestinationBranchID != *f.VisibleTo {
		return false
	}
	return true
}

// StatsFilter narrows Stats. BranchID matches source or destination.
type StatsFilter struct {
	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`
	BranchID *id.ID     `json:"branchId,omitempty"`
}

// ListFilter converts to an unpaged listing filter with the same scope.
func (f StatsFilter) ListFilter() ListFilter {
	return ListFilter{DateFrom: f.DateFrom, DateTo: f.DateTo, VisibleTo: f.BranchID}
}
