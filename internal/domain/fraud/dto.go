// internal/domain/fraud/dto.go
package fraud

type ResolveReviewRequest struct {
	Resolution Resolution `json:"resolution" binding:"required,oneof=approved rejected"`
	Notes      string     `json:"notes"`
}

type ReviewListFilters struct {
	Status *ReviewStatus `form:"status"`
}
