package selq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapRowFlat(t *testing.T) {
	users, _, _ := fixtureTables()

	q := Select().From(users)

	row := MapRow(q.Fields(), q.Nullability(), []any{int64(1), "ann", nil})

	assert.Equal(t, Row{"id": int64(1), "name": "ann", "email": nil}, row)
}

func TestMapRowCollapsesMissingJoin(t *testing.T) {
	users, pets, _ := fixtureTables()

	q := Select().From(users).LeftJoin(pets, ownerOf(pets, users))

	row := MapRow(q.Fields(), q.Nullability(), []any{int64(1), "ann", nil, nil, nil, nil})

	assert.Equal(t, Row{
		"users": Row{"id": int64(1), "name": "ann", "email": nil},
		"pets":  nil,
	}, row)

	row = MapRow(q.Fields(), q.Nullability(), []any{int64(1), "ann", nil, int64(3), int64(1), "rex"})

	assert.Equal(t, Row{"id": int64(3), "owner_id": int64(1), "name": "rex"}, row["pets"])
}

func TestMapRowKeepsGuaranteedSources(t *testing.T) {
	users, pets, _ := fixtureTables()

	q := Select().From(users).InnerJoin(pets, ownerOf(pets, users))

	row := MapRow(q.Fields(), q.Nullability(), []any{nil, nil, nil, nil, nil, nil})

	assert.Equal(t, Row{"id": nil, "owner_id": nil, "name": nil}, row["pets"])
}

func TestMapRowMixedGroup(t *testing.T) {
	users, pets, _ := fixtureTables()

	q := Select(
		Group("info", Item("user", users.Col("name")), Item("pet", pets.Col("name"))),
		Group("pet", Item("name", pets.Col("name"))),
	).From(users).LeftJoin(pets, ownerOf(pets, users))

	row := MapRow(q.Fields(), q.Nullability(), []any{nil, nil, nil})

	assert.Equal(t, Row{
		"info": Row{"user": nil, "pet": nil},
		"pet":  nil,
	}, row)
}

func TestMapRowCollapsesNestedGroups(t *testing.T) {
	users, pets, _ := fixtureTables()

	q := Select(
		Group("owner",
			Item("name", users.Col("name")),
			Group("pet", Item("id", pets.Col("id")), Item("name", pets.Col("name"))),
		),
	).From(users).LeftJoin(pets, ownerOf(pets, users))

	row := MapRow(q.Fields(), q.Nullability(), []any{"ann", nil, nil})

	assert.Equal(t, Row{"owner": Row{"name": "ann", "pet": nil}}, row)

	row = MapRow(q.Fields(), q.Nullability(), []any{"ann", int64(3), "rex"})

	assert.Equal(t, Row{"owner": Row{"name": "ann", "pet": Row{"id": int64(3), "name": "rex"}}}, row)
}

func TestMapRowCollapsesGroupsOfASubquery(t *testing.T) {
	users, pets, _ := fixtureTables()

	tests := []struct {
		name string
		sub  *Subquery
		want any
	}{
		{
			name: "left joined source inside the subquery",
			sub:  Select().From(users).LeftJoin(pets, ownerOf(pets, users)).As("s"),
			want: nil,
		},
		{
			name: "inner joined source inside the subquery",
			sub:  Select().From(users).InnerJoin(pets, ownerOf(pets, users)).As("s"),
			want: Row{"id": nil, "owner_id": nil, "name": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Select().From(tt.sub)

			row := MapRow(q.Fields(), q.Nullability(), []any{int64(1), "ann", nil, nil, nil, nil})

			assert.Equal(t, Row{"id": int64(1), "name": "ann", "email": nil}, row["users"])
			assert.Equal(t, tt.want, row["pets"])
		})
	}
}

func TestMapRowCollapsesThroughNestedSubqueries(t *testing.T) {
	users, pets, _ := fixtureTables()

	inner := Select().From(users).LeftJoin(pets, ownerOf(pets, users)).As("a")
	outer := Select().From(inner).As("b")
	q := Select().From(outer)

	row := MapRow(q.Fields(), q.Nullability(), []any{int64(1), "ann", nil, nil, nil, nil})

	assert.Nil(t, row["pets"])
	assert.NotNil(t, row["users"])
}
