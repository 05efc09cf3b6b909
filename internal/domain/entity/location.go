package entity

import "time"

// Location representa un lugar de almacenamiento con nombre único.
type Location struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}
