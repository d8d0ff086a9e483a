package selq

import (
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aliases(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

func TestNullabilityKeys(t *testing.T) {
	users, pets, toys := fixtureTables()

	q := Select().From(users).
		LeftJoin(pets, ownerOf(pets, users)).
		InnerJoin(toys, toyOf(toys, pets))

	require.NoError(t, q.Err())
	assert.Equal(t, []string{"pets", "toys", "users"}, aliases(q.Nullability()))
	assert.Len(t, q.Joins(), 2)
}

func TestJoinNullability(t *testing.T) {
	users, pets, toys := fixtureTables()

	tests := []struct {
		name  string
		build func() *Query
		want  map[string]bool
	}{
		{
			name: "no join",
			build: func() *Query {
				return Select().From(users)
			},
			want: map[string]bool{"users": true},
		},
		{
			name: "inner joins keep every source present",
			build: func() *Query {
				return Select().From(users).
					InnerJoin(pets, ownerOf(pets, users)).
					InnerJoin(toys, toyOf(toys, pets))
			},
			want: map[string]bool{"users": true, "pets": true, "toys": true},
		},
		{
			name: "left join only affects the target",
			build: func() *Query {
				return Select().From(users).
					InnerJoin(pets, ownerOf(pets, users)).
					LeftJoin(toys, toyOf(toys, pets))
			},
			want: map[string]bool{"users": true, "pets": true, "toys": false},
		},
		{
			name: "right join makes earlier sources nullable",
			build: func() *Query {
				return Select().From(users).
					LeftJoin(pets, ownerOf(pets, users)).
					RightJoin(toys, toyOf(toys, pets))
			},
			want: map[string]bool{"users": false, "pets": false, "toys": true},
		},
		{
			name: "join after right join uses the running map",
			build: func() *Query {
				return Select().From(users).
					RightJoin(pets, ownerOf(pets, users)).
					InnerJoin(toys, toyOf(toys, pets))
			},
			want: map[string]bool{"users": false, "pets": true, "toys": true},
		},
		{
			name: "full join makes everything nullable",
			build: func() *Query {
				return Select().From(users).
					InnerJoin(pets, ownerOf(pets, users)).
					FullJoin(toys, toyOf(toys, pets))
			},
			want: map[string]bool{"users": false, "pets": false, "toys": false},
		},
		{
			name: "inner join after full join",
			build: func() *Query {
				return Select().From(users).
					FullJoin(pets, ownerOf(pets, users)).
					InnerJoin(toys, toyOf(toys, pets))
			},
			want: map[string]bool{"users": false, "pets": false, "toys": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.build()

			require.NoError(t, q.Err())
			assert.Equal(t, tt.want, q.Nullability())
		})
	}
}

func TestFirstJoinNestsSingleSelection(t *testing.T) {
	users, pets, _ := fixtureTables()

	q := Select().From(users)

	assert.Equal(t, ModeSingle, q.Mode())
	assert.Equal(t, [][]string{{"id"}, {"name"}, {"email"}}, q.Fields().Paths())

	q.LeftJoin(pets, ownerOf(pets, users))

	assert.Equal(t, ModeSingle, q.Mode())
	assert.Equal(t, [][]string{
		{"users", "id"}, {"users", "name"}, {"users", "email"},
		{"pets", "id"}, {"pets", "owner_id"}, {"pets", "name"},
	}, q.Fields().Paths())
	assert.Equal(t, []string{"users", "pets"}, q.Selection().Keys())
}

func TestSecondJoinAppendsOnly(t *testing.T) {
	users, pets, toys := fixtureTables()

	q := Select().From(users).
		LeftJoin(pets, ownerOf(pets, users)).
		LeftJoin(toys.As("t"), nil)

	paths := q.Fields().Paths()
	require.Len(t, paths, 9)
	assert.Equal(t, []string{"users", "id"}, paths[0])
	assert.Equal(t, []string{"t", "label"}, paths[8])
	assert.Equal(t, []string{"users", "pets", "t"}, q.Selection().Keys())
}

func TestPartialSelectionIgnoresJoins(t *testing.T) {
	users, pets, toys := fixtureTables()

	q := Select(
		Item("name", users.Col("name")),
		Item("pet", pets.Col("name")),
	).From(users)

	before := q.Fields()

	q.LeftJoin(pets, ownerOf(pets, users)).
		RightJoin(toys, toyOf(toys, pets))

	require.NoError(t, q.Err())
	assert.Equal(t, ModePartial, q.Mode())
	assert.Equal(t, before, q.Fields())
	assert.Equal(t, map[string]bool{"users": false, "pets": false, "toys": true}, q.Nullability())
}

func TestDuplicateAlias(t *testing.T) {
	users, pets, toys := fixtureTables()

	q := Select().From(users).LeftJoin(pets, ownerOf(pets, users))

	var (
		fields      = q.Fields()
		nullability = q.Nullability()
		joins       = q.Joins()
	)

	q.InnerJoin(pets, nil)

	require.Error(t, q.Err())
	assert.True(t, errors.Is(q.Err(), ErrDuplicateAlias))
	assert.Contains(t, q.Err().Error(), `inner join "pets"`)
	assert.Equal(t, fields, q.Fields())
	assert.Equal(t, nullability, q.Nullability())
	assert.Equal(t, joins, q.Joins())

	// later joins are ignored once the statement failed
	q.LeftJoin(toys, toyOf(toys, pets))
	assert.Len(t, q.Joins(), 1)

	_, err := q.Compile()
	assert.True(t, errors.Is(err, ErrDuplicateAlias))
}

func TestDuplicateAliasOfBase(t *testing.T) {
	users, _, _ := fixtureTables()

	q := Select().From(users).LeftJoin(users, nil)
	assert.True(t, errors.Is(q.Err(), ErrDuplicateAlias))

	q = Select().From(users).LeftJoin(users.As("manager"), nil)
	require.NoError(t, q.Err())
	assert.Equal(t, map[string]bool{"users": true, "manager": false}, q.Nullability())
}
