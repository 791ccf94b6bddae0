package loader

import (
	"github.com/crimelens/crime-insights-service/internal/domain"
)

// RowParser defines the interface for mapping one CSV row onto a crime record
type RowParser interface {
	Parse(header, fields []string) (*domain.CrimeRecord, error)
}
