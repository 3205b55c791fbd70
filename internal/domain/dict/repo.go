package dict

import "context"

// Repository defines storage operations for dictionary items.
type Repository interface {
	Search(ctx context.Context, setCode, query string, limit, offset int) ([]*Item, int, error)
	Name(ctx context.Context, setCode, code string) (string, bool, error)
	Sets(ctx context.Context) ([]string, error)
}
