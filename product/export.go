package product

import "time"

// Export is the transferable snapshot of the whole catalog. The JSON field
// names match the interchange files existing installations already produce
// and consume.
type Export struct {
	ExportDate    time.Time  `json:"exportDate"`
	TotalProducts int        `json:"totalProducts"`
	Products      []*Product `json:"products"`
}
