package sync

import "context"

type Repository interface {
	Journal(ctx context.Context, e *LogEntry) error
	ListRecent(ctx context.Context, limit, offset int) ([]*LogEntry, int, error)
}
