package session

import (
	"context"
	"sync"
	"testing"

	"github.com/donseba/selq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const schema = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT);
CREATE TABLE pets (id INTEGER PRIMARY KEY, owner_id INTEGER NOT NULL, name TEXT NOT NULL);
INSERT INTO users VALUES (1, 'ann', 'ann@example.com'), (2, 'bob', NULL);
INSERT INTO pets VALUES (1, 1, 'rex'), (2, 1, 'max');
`

func fixtureTables() (users, pets *selq.Table) {
	users = selq.NewTable("users",
		selq.ColumnDef{Name: "id", Type: "integer", NotNull: true},
		selq.ColumnDef{Name: "name", Type: "text", NotNull: true},
		selq.ColumnDef{Name: "email", Type: "text"},
	)

	pets = selq.NewTable("pets",
		selq.ColumnDef{Name: "id", Type: "integer", NotNull: true},
		selq.ColumnDef{Name: "owner_id", Type: "integer", NotNull: true},
		selq.ColumnDef{Name: "name", Type: "text", NotNull: true},
	)

	return users, pets
}

func openTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()

	sess, err := Open(&Config{Driver: "sqlite", LogLevel: "error"}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	_, err = sess.Exec(context.Background(), schema)
	require.NoError(t, err)

	return sess
}

func TestAllShapesJoinedRows(t *testing.T) {
	sess := openTestSession(t)
	users, pets := fixtureTables()

	rows, err := sess.Builder().
		Select().
		From(users).
		LeftJoin(pets, selq.Eq(pets.Col("owner_id"), users.Col("id"))).
		OrderBy(users.Col("id"), pets.Col("id")).
		All(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, []selq.Row{
		{
			"users": selq.Row{"id": int64(1), "name": "ann", "email": "ann@example.com"},
			"pets":  selq.Row{"id": int64(1), "owner_id": int64(1), "name": "rex"},
		},
		{
			"users": selq.Row{"id": int64(1), "name": "ann", "email": "ann@example.com"},
			"pets":  selq.Row{"id": int64(2), "owner_id": int64(1), "name": "max"},
		},
		{
			"users": selq.Row{"id": int64(2), "name": "bob", "email": nil},
			"pets":  nil,
		},
	}, rows)
}

func TestGetWithPlaceholders(t *testing.T) {
	sess := openTestSession(t)
	users, _ := fixtureTables()

	q := sess.Builder().
		Select(selq.Item("name", users.Col("name"))).
		From(users).
		Where(selq.Eq(users.Col("id"), selq.Param("id")))

	row, err := q.Get(context.Background(), selq.Params{"id": 2})
	require.NoError(t, err)
	assert.Equal(t, selq.Row{"name": "bob"}, row)

	row, err = q.Get(context.Background(), selq.Params{"id": 99})
	require.NoError(t, err)
	assert.Nil(t, row)

	_, err = q.Get(context.Background(), nil)
	assert.True(t, errors.Is(err, selq.ErrMissingParam))
}

func TestValuesWithLimitParam(t *testing.T) {
	sess := openTestSession(t)
	users, _ := fixtureTables()

	values, err := sess.Builder().
		Select(selq.Item("id", users.Col("id"))).
		From(users).
		OrderBy(selq.DescOf(users.Col("id"))).
		LimitParam("n").
		Values(context.Background(), selq.Params{"n": 1})

	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, values)
}

func TestValuesWithOffsetOnly(t *testing.T) {
	sess := openTestSession(t)
	users, _ := fixtureTables()

	values, err := sess.Builder().
		Select(selq.Item("id", users.Col("id"))).
		From(users).
		OrderBy(users.Col("id")).
		Offset(1).
		Values(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, values)
}

func TestSubqueryRoundTrip(t *testing.T) {
	sess := openTestSession(t)
	users, pets := fixtureTables()

	b := sess.Builder()

	counts := b.Select(
		selq.Item("owner_id", pets.Col("owner_id")),
		selq.Item("total", selq.Raw("COUNT(*)").NotNull()),
	).From(pets).
		GroupBy(pets.Col("owner_id")).
		As("pc")

	rows, err := b.With(counts).
		Select(
			selq.Item("name", users.Col("name")),
			selq.Group("pets", selq.Item("total", counts.Col("total"))),
		).
		From(users).
		LeftJoin(counts, selq.Eq(counts.Col("owner_id"), users.Col("id"))).
		OrderBy(users.Col("id")).
		All(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, []selq.Row{
		{"name": "ann", "pets": selq.Row{"total": int64(2)}},
		{"name": "bob", "pets": nil},
	}, rows)
}

func TestStatementCache(t *testing.T) {
	sess := openTestSession(t, WithStatementCache(1))
	users, _ := fixtureTables()

	byID := sess.Builder().Select(selq.Item("id", users.Col("id"))).From(users).
		Where(selq.Eq(users.Col("id"), 1))
	byName := sess.Builder().Select(selq.Item("id", users.Col("id"))).From(users).
		Where(selq.Eq(users.Col("name"), "bob"))

	for i := 0; i < 2; i++ {
		_, err := byID.All(context.Background(), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, sess.stmts.Len())

	// evicts and closes the first statement
	_, err := byName.All(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.stmts.Len())

	rows, err := byID.All(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStatementCacheConcurrentEviction(t *testing.T) {
	sess := openTestSession(t, WithStatementCache(1))
	users, pets := fixtureTables()

	queries := []*selq.Final{
		&sess.Builder().Select(selq.Item("id", users.Col("id"))).From(users).Final,
		&sess.Builder().Select(selq.Item("name", users.Col("name"))).From(users).Final,
		&sess.Builder().Select(selq.Item("name", pets.Col("name"))).From(pets).Final,
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()

			for i := 0; i < 25; i++ {
				values, err := queries[(g+i)%len(queries)].Values(context.Background(), nil)
				if !assert.NoError(t, err) {
					return
				}
				assert.Len(t, values, 2)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, sess.stmts.Len(), 1)
}

func TestEvictedStatementStaysOpenWhileInUse(t *testing.T) {
	sess := openTestSession(t, WithStatementCache(1))
	ctx := context.Background()

	const first, second = "SELECT id FROM users", "SELECT name FROM users"

	entry, err := sess.acquire(ctx, first)
	require.NoError(t, err)

	other, err := sess.acquire(ctx, second)
	require.NoError(t, err)
	sess.release(second, other)

	assert.False(t, sess.stmts.Contains(first))
	assert.False(t, entry.acquire())

	rows, err := entry.stmt.QueryxContext(ctx)
	require.NoError(t, err)
	require.NoError(t, rows.Close())

	require.NoError(t, entry.release())

	_, err = entry.stmt.QueryxContext(ctx)
	assert.Error(t, err)
}

func TestAcquireSharesCachedStatement(t *testing.T) {
	sess := openTestSession(t, WithStatementCache(2))
	ctx := context.Background()

	const query = "SELECT id FROM users"

	a, err := sess.acquire(ctx, query)
	require.NoError(t, err)
	b, err := sess.acquire(ctx, query)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 2, a.refs)

	sess.release(query, a)
	sess.release(query, b)
	assert.Equal(t, 0, a.refs)
	assert.Equal(t, 1, sess.stmts.Len())
}

func TestWithoutStatementCache(t *testing.T) {
	sess := openTestSession(t, WithStatementCache(0))
	users, _ := fixtureTables()

	assert.Nil(t, sess.stmts)

	c, err := sess.Builder().Select().From(users).Compile()
	require.NoError(t, err)

	p, err := sess.Prepare(context.Background(), c)
	require.NoError(t, err)

	rows, err := p.All(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.NoError(t, p.(*Prepared).Close())
}

func TestQueryErrorsCarrySQL(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sess := openTestSession(t, WithLogger(zap.New(core)))

	missing := selq.NewTable("missing", selq.ColumnDef{Name: "id"})

	_, err := sess.Builder().Select().From(missing).All(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `SQL: SELECT "missing"."id" FROM "missing"`)
	assert.Equal(t, 1, logs.FilterMessage("prepare failed").Len())
}

func TestLogsExecutedStatements(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sess := openTestSession(t, WithLogger(zap.New(core)))
	users, _ := fixtureTables()

	_, err := sess.Builder().Select().From(users).All(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("compiled select").Len())
	assert.Equal(t, 1, logs.FilterMessage("prepared").Len())

	executed := logs.FilterMessage("executed").All()
	require.Len(t, executed, 1)
	assert.Equal(t, int64(2), executed[0].ContextMap()["rows"])
}

func TestRun(t *testing.T) {
	sess := openTestSession(t)
	users, _ := fixtureTables()

	_, err := sess.Builder().Select().From(users).Run(context.Background(), nil)
	assert.NoError(t, err)
}
