package repository

import "gorm.io/gorm/clause"

func onConflictDoNothing(columns ...string) clause.OnConflict {
	cols := make([]clause.Column, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, clause.Column{Name: c})
	}
	return clause.OnConflict{Columns: cols, DoNothing: true}
}
