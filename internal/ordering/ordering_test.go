package ordering_test

import (
	"fmt"
	"testing"

	"todo-manager/backend/internal/ordering"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type OrderingTestSuite struct {
	suite.Suite
	db         *gorm.DB
	collection ordering.Collection
}

func (suite *OrderingTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = db.Exec(`
		CREATE TABLE items (
			id TEXT PRIMARY KEY,
			scope_id TEXT NOT NULL,
			"order" INTEGER NOT NULL,
			is_default BOOLEAN NOT NULL DEFAULT false
		)
	`).Error
	suite.Require().NoError(err)

	suite.db = db
	suite.collection = ordering.Collection{
		Table:       "items",
		ScopeColumn: "scope_id",
		Base:        1,
	}
}

func (suite *OrderingTestSuite) seed(scope string, n int) {
	for i := 1; i <= n; i++ {
		err := suite.db.Exec(
			`INSERT INTO items (id, scope_id, "order") VALUES (?, ?, ?)`,
			fmt.Sprintf("%s-%d", scope, i), scope, i,
		).Error
		suite.Require().NoError(err)
	}
}

// orders returns the scope's order values keyed by row id.
func (suite *OrderingTestSuite) orders(scope string) map[string]int {
	rows := []struct {
		ID    string
		Order int
	}{}
	err := suite.db.Table("items").
		Select(`id, "order"`).
		Where("scope_id = ?", scope).
		Scan(&rows).Error
	suite.Require().NoError(err)
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Order
	}
	return out
}

// assertDense verifies the scope holds exactly the orders Base..Base+N-1
// with no duplicates.
func (suite *OrderingTestSuite) assertDense(scope string) {
	orders := suite.orders(scope)
	seen := make(map[int]bool, len(orders))
	for id, o := range orders {
		suite.False(seen[o], "duplicate order %d at %s", o, id)
		seen[o] = true
		suite.GreaterOrEqual(o, 1)
		suite.LessOrEqual(o, len(orders))
	}
}

func (suite *OrderingTestSuite) TestMaxOrderEmptyScope() {
	max, err := suite.collection.MaxOrder(suite.db, "empty")
	suite.NoError(err)
	suite.Equal(0, max)
}

func (suite *OrderingTestSuite) TestInsertAppendsWithNilPosition() {
	suite.seed("a", 3)
	order, err := suite.collection.InsertAt(suite.db, "a", nil)
	suite.NoError(err)
	suite.Equal(4, order)
	suite.assertDense("a")
}

func (suite *OrderingTestSuite) TestInsertPastEndAppends() {
	suite.seed("a", 3)
	pos := 99
	order, err := suite.collection.InsertAt(suite.db, "a", &pos)
	suite.NoError(err)
	suite.Equal(4, order)
}

func (suite *OrderingTestSuite) TestInsertInMiddleShiftsFollowers() {
	suite.seed("a", 4)
	pos := 2
	order, err := suite.collection.InsertAt(suite.db, "a", &pos)
	suite.NoError(err)
	suite.Equal(2, order)

	orders := suite.orders("a")
	suite.Equal(1, orders["a-1"])
	suite.Equal(3, orders["a-2"])
	suite.Equal(4, orders["a-3"])
	suite.Equal(5, orders["a-4"])
}

func (suite *OrderingTestSuite) TestInsertClampsBelowBase() {
	suite.seed("a", 2)
	pos := -5
	order, err := suite.collection.InsertAt(suite.db, "a", &pos)
	suite.NoError(err)
	suite.Equal(1, order)

	orders := suite.orders("a")
	suite.Equal(2, orders["a-1"])
	suite.Equal(3, orders["a-2"])
}

func (suite *OrderingTestSuite) TestMoveDown() {
	suite.seed("a", 6)
	order, err := suite.collection.MoveWithin(suite.db, "a", "a-2", 2, 5)
	suite.NoError(err)
	suite.Equal(5, order)
	suite.Require().NoError(suite.db.Exec(
		`UPDATE items SET "order" = ? WHERE id = ?`, order, "a-2").Error)

	orders := suite.orders("a")
	suite.Equal(1, orders["a-1"])
	suite.Equal(2, orders["a-3"])
	suite.Equal(3, orders["a-4"])
	suite.Equal(4, orders["a-5"])
	suite.Equal(5, orders["a-2"])
	suite.Equal(6, orders["a-6"])
	suite.assertDense("a")
}

func (suite *OrderingTestSuite) TestMoveUp() {
	suite.seed("a", 6)
	order, err := suite.collection.MoveWithin(suite.db, "a", "a-5", 5, 2)
	suite.NoError(err)
	suite.Equal(2, order)
	suite.Require().NoError(suite.db.Exec(
		`UPDATE items SET "order" = ? WHERE id = ?`, order, "a-5").Error)

	orders := suite.orders("a")
	suite.Equal(1, orders["a-1"])
	suite.Equal(2, orders["a-5"])
	suite.Equal(3, orders["a-2"])
	suite.Equal(4, orders["a-3"])
	suite.Equal(5, orders["a-4"])
	suite.Equal(6, orders["a-6"])
	suite.assertDense("a")
}

func (suite *OrderingTestSuite) TestMoveToSamePositionIsNoop() {
	suite.seed("a", 3)
	order, err := suite.collection.MoveWithin(suite.db, "a", "a-2", 2, 2)
	suite.NoError(err)
	suite.Equal(2, order)
	suite.assertDense("a")
}

func (suite *OrderingTestSuite) TestMoveAcrossScopes() {
	suite.seed("src", 4)
	suite.seed("dst", 3)

	order, err := suite.collection.MoveAcross(suite.db, "src", "dst", "src-2", 2, 2)
	suite.NoError(err)
	suite.Equal(2, order)
	suite.Require().NoError(suite.db.Exec(
		`UPDATE items SET scope_id = ?, "order" = ? WHERE id = ?`, "dst", order, "src-2").Error)

	srcOrders := suite.orders("src")
	suite.Equal(1, srcOrders["src-1"])
	suite.Equal(2, srcOrders["src-3"])
	suite.Equal(3, srcOrders["src-4"])

	dstOrders := suite.orders("dst")
	suite.Equal(1, dstOrders["dst-1"])
	suite.Equal(2, dstOrders["src-2"])
	suite.Equal(3, dstOrders["dst-2"])
	suite.Equal(4, dstOrders["dst-3"])

	suite.assertDense("src")
	suite.assertDense("dst")
}

func (suite *OrderingTestSuite) TestCloseGapAfterDelete() {
	suite.seed("a", 5)
	suite.Require().NoError(suite.db.Exec(`DELETE FROM items WHERE id = ?`, "a-3").Error)
	suite.Require().NoError(suite.collection.CloseGap(suite.db, "a", 3))

	orders := suite.orders("a")
	suite.Equal(1, orders["a-1"])
	suite.Equal(2, orders["a-2"])
	suite.Equal(3, orders["a-4"])
	suite.Equal(4, orders["a-5"])
	suite.assertDense("a")
}

func (suite *OrderingTestSuite) TestRenumberRewritesDenseFromBase() {
	suite.seed("a", 3)
	// Tear holes in the sequence.
	suite.Require().NoError(suite.db.Exec(`UPDATE items SET "order" = 7 WHERE id = 'a-2'`).Error)
	suite.Require().NoError(suite.db.Exec(`UPDATE items SET "order" = 4 WHERE id = 'a-3'`).Error)

	suite.Require().NoError(suite.collection.Renumber(suite.db, "a"))

	orders := suite.orders("a")
	suite.Equal(1, orders["a-1"])
	suite.Equal(2, orders["a-3"])
	suite.Equal(3, orders["a-2"])
}

func (suite *OrderingTestSuite) TestRenumberSkipsDefaultRow() {
	defaultColl := ordering.Collection{
		Table:       "items",
		ScopeColumn: "scope_id",
		Base:        1,
		OmitDefault: true,
	}
	suite.Require().NoError(suite.db.Exec(
		`INSERT INTO items (id, scope_id, "order", is_default) VALUES ('a-def', 'a', 0, true)`).Error)
	suite.seed("a", 2)
	suite.Require().NoError(suite.db.Exec(`UPDATE items SET "order" = 9 WHERE id = 'a-2'`).Error)

	suite.Require().NoError(defaultColl.Renumber(suite.db, "a"))

	orders := suite.orders("a")
	suite.Equal(0, orders["a-def"])
	suite.Equal(1, orders["a-1"])
	suite.Equal(2, orders["a-2"])
}

func TestOrderingTestSuite(t *testing.T) {
	suite.Run(t, new(OrderingTestSuite))
}
