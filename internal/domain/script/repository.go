package script

import "context"

// Repository defines the interface for script catalog persistence.
// Lookup methods return (nil, nil) when no matching record exists.
type Repository interface {
	Create(ctx context.Context, s *Script) error
	GetByID(ctx context.Context, id uint) (*Script, error)
	GetBySID(ctx context.Context, sid string) (*Script, error)
	GetBySlug(ctx context.Context, slug string) (*Script, error)
	List(ctx context.Context) ([]*Script, error)
}
