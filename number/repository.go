package number

import "context"

/* Small interfaces, composed into Repository */

type Reader interface {
	Get(ctx context.Context, id string) (Number, error)
	ListByUser(ctx context.Context, userID string) ([]Number, error)
}

type Writer interface {
	Insert(ctx context.Context, n Number) (string, error)
	Update(ctx context.Context, n Number) error
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}
