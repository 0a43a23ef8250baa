// Package ordering maintains dense, gap-free order integers across sibling
// rows sharing a scope (tasks of a section, sections of a project, projects
// of an owner). Every mutation runs inside the caller's transaction; shifts
// are single bulk UPDATE statements so no partially shifted state is ever
// visible to other transactions.
package ordering

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownItem = errors.New("ordering: item not in scope")

// Collection describes one ordered sibling set: the table holding the rows,
// the column identifying the scope, and the first order value in the scope.
type Collection struct {
	Table       string
	ScopeColumn string
	Base        int

	// OmitDefault excludes is_default rows from renumbering; default rows
	// sit at a fixed order outside the user-visible scope.
	OmitDefault bool
}

func (c Collection) scoped(tx *gorm.DB, scope interface{}) *gorm.DB {
	return tx.Table(c.Table).Where(fmt.Sprintf("%s = ?", c.ScopeColumn), scope)
}

// Lock serializes concurrent mutations on a scope. Postgres takes row locks
// with FOR UPDATE; sqlite (tests) serializes at the database level already.
func (c Collection) Lock(tx *gorm.DB, scope interface{}) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	var ids []string
	return c.scoped(tx.Clauses(clause.Locking{Strength: "UPDATE"}), scope).
		Pluck("id", &ids).Error
}

// MaxOrder returns the highest order in the scope, or Base-1 when empty,
// so MaxOrder+1 is always the append position.
func (c Collection) MaxOrder(tx *gorm.DB, scope interface{}) (int, error) {
	var max *int
	err := c.scoped(tx, scope).Select(`MAX("order")`).Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return c.Base - 1, nil
	}
	return *max, nil
}

// InsertAt opens a slot at position and returns the order the new row must be
// saved with. A nil position, or one past the end, appends. The caller saves
// the row with the returned order inside the same transaction.
func (c Collection) InsertAt(tx *gorm.DB, scope interface{}, position *int) (int, error) {
	if err := c.Lock(tx, scope); err != nil {
		return 0, err
	}
	max, err := c.MaxOrder(tx, scope)
	if err != nil {
		return 0, err
	}
	if position == nil || *position > max {
		return max + 1, nil
	}
	pos := *position
	if pos < c.Base {
		pos = c.Base
	}
	err = c.scoped(tx, scope).Where(`"order" >= ?`, pos).
		UpdateColumn("order", gorm.Expr(`"order" + 1`)).Error
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// MoveWithin shifts siblings between the item's current and new position and
// returns the order to assign the item. Moving down decrements the rows left
// behind; moving up increments the rows displaced.
func (c Collection) MoveWithin(tx *gorm.DB, scope interface{}, itemID interface{}, current, newOrder int) (int, error) {
	if err := c.Lock(tx, scope); err != nil {
		return 0, err
	}
	if newOrder == current {
		return current, nil
	}
	q := c.scoped(tx, scope).Where("id <> ?", itemID)
	if newOrder > current {
		err := q.Where(`"order" > ? AND "order" <= ?`, current, newOrder).
			UpdateColumn("order", gorm.Expr(`"order" - 1`)).Error
		if err != nil {
			return 0, err
		}
	} else {
		err := q.Where(`"order" >= ? AND "order" < ?`, newOrder, current).
			UpdateColumn("order", gorm.Expr(`"order" + 1`)).Error
		if err != nil {
			return 0, err
		}
	}
	return newOrder, nil
}

// MoveAcross closes the gap the item leaves in the source scope and opens a
// slot in the destination, returning the order to assign the item there.
func (c Collection) MoveAcross(tx *gorm.DB, fromScope, toScope interface{}, itemID interface{}, current, newOrder int) (int, error) {
	if err := c.Lock(tx, fromScope); err != nil {
		return 0, err
	}
	if err := c.Lock(tx, toScope); err != nil {
		return 0, err
	}
	err := c.scoped(tx, fromScope).Where("id <> ?", itemID).
		Where(`"order" > ?`, current).
		UpdateColumn("order", gorm.Expr(`"order" - 1`)).Error
	if err != nil {
		return 0, err
	}
	err = c.scoped(tx, toScope).Where("id <> ?", itemID).
		Where(`"order" >= ?`, newOrder).
		UpdateColumn("order", gorm.Expr(`"order" + 1`)).Error
	if err != nil {
		return 0, err
	}
	return newOrder, nil
}

// CloseGap decrements every sibling ordered after the removed position. The
// caller deletes the row itself, in the same transaction.
func (c Collection) CloseGap(tx *gorm.DB, scope interface{}, removedOrder int) error {
	if err := c.Lock(tx, scope); err != nil {
		return err
	}
	return c.scoped(tx, scope).Where(`"order" > ?`, removedOrder).
		UpdateColumn("order", gorm.Expr(`"order" - 1`)).Error
}

// Renumber rewrites the scope to Base..Base+N-1 preserving relative order.
// Used after cross-scope moves that leave more than a single gap behind.
func (c Collection) Renumber(tx *gorm.DB, scope interface{}) error {
	if err := c.Lock(tx, scope); err != nil {
		return err
	}
	q := c.scoped(tx, scope)
	if c.OmitDefault {
		q = q.Where("is_default = ?", false)
	}
	var ids []string
	if err := q.Order(`"order"`).Pluck("id", &ids).Error; err != nil {
		return err
	}
	for i, id := range ids {
		err := tx.Table(c.Table).Where("id = ?", id).
			UpdateColumn("order", c.Base+i).Error
		if err != nil {
			return err
		}
	}
	return nil
}
