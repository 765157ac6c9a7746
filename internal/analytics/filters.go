package analytics

import (
	"context"
	"fmt"
)

// FilterOptions lists the distinct values the dashboard offers per filter.
type FilterOptions struct {
	Continents []string `json:"continents"`
	Countries  []string `json:"countries"`
	OSes       []string `json:"oses"`
	Browsers   []string `json:"browsers"`
	Languages  []string `json:"languages"`
}

func (a *Aggregator) distinct(ctx context.Context, column string) ([]string, error) {
	var out []string
	q := fmt.Sprintf("SELECT DISTINCT %s FROM Sessions WHERE %s <> '' ORDER BY %s", column, column, column)
	if err := a.db.WithContext(ctx).Raw(q).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("analytics: distinct %s: %w", column, err)
	}
	return out, nil
}

// FilterOptions reads the distinct session attributes. Columns are fixed
// identifiers, never user input.
func (a *Aggregator) FilterOptions(ctx context.Context) (FilterOptions, error) {
	var f FilterOptions
	var err error
	if f.Continents, err = a.distinct(ctx, "Continent"); err != nil {
		return f, err
	}
	if f.Countries, err = a.distinct(ctx, "Country"); err != nil {
		return f, err
	}
	if f.OSes, err = a.distinct(ctx, "OS"); err != nil {
		return f, err
	}
	if f.Browsers, err = a.distinct(ctx, "Browser"); err != nil {
		return f, err
	}
	f.Languages, err = a.distinct(ctx, "Language")
	return f, err
}
