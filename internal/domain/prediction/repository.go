package prediction

import "context"

// Repository exposes day-keyed prediction storage. The store enforces
// uniqueness on date; ReplaceDay swaps a day's full prediction list in one
// all-or-nothing write.
type Repository interface {
	ListDays(ctx context.Context) ([]Day, error)
	GetDay(ctx context.Context, date string) (Day, error)
	GetDaysByUser(ctx context.Context, userID string) ([]Day, error)
	AppendToDay(ctx context.Context, date string, records []Record) error
	ReplaceDay(ctx context.Context, date string, records []Record) error
}
