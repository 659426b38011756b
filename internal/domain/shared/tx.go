package shared

import "context"

// Transactor runs fn in a single unit of work. Repositories called with the
// context passed to fn take part in the same transaction; if fn returns an
// error, nothing fn wrote is kept.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
