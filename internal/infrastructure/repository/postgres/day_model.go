package postgres

import "time"

type dayTableModel struct {
	Date        string    `db:"date"`
	Predictions []byte    `db:"predictions"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
