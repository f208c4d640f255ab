package database

import (
	"fmt"

	"github.com/helixml/scholar/domain/repository"
	"gorm.io/gorm"
)

// ApplyOptions builds a repository.Query from the given options and applies
// it to a GORM session: conditions, ordering, then pagination.
func ApplyOptions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	q := repository.Build(options...)

	db = applyConditions(db, q)

	for _, ord := range q.Orders() {
		db = db.Order(orderClause(ord))
	}

	if q.LimitValue() > 0 {
		db = db.Limit(q.LimitValue())
	}

	if q.OffsetValue() > 0 {
		db = db.Offset(q.OffsetValue())
	}

	return db
}

// ApplyConditions applies only WHERE conditions (no limit/offset/order),
// for COUNT and DELETE queries.
func ApplyConditions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	return applyConditions(db, repository.Build(options...))
}

func applyConditions(db *gorm.DB, q repository.Query) *gorm.DB {
	for _, cond := range q.Conditions() {
		if cond.In() {
			db = db.Where(fmt.Sprintf("%s IN ?", cond.Field()), cond.Value())
		} else {
			db = db.Where(fmt.Sprintf("%s = ?", cond.Field()), cond.Value())
		}
	}
	return db
}

// orderClause renders an Order as SQL. NULLS LAST is understood by both
// PostgreSQL and SQLite (3.30+), so no dialect switch is needed.
func orderClause(ord repository.Order) string {
	dir := "ASC"
	if !ord.Ascending() {
		dir = "DESC"
	}
	if ord.NullsLast() {
		return fmt.Sprintf("%s %s NULLS LAST", ord.Field(), dir)
	}
	return fmt.Sprintf("%s %s", ord.Field(), dir)
}
