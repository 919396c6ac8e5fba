package analyses

import "context"

// Repo defines persistence operations for analysis history.
type Repo interface {
	Create(ctx context.Context, a Analysis) error
	List(ctx context.Context, limit, offset int) ([]Analysis, error)
}
