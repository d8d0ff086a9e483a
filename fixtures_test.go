package selq

func fixtureTables() (users, pets, toys *Table) {
	users = NewTable("users",
		ColumnDef{Name: "id", Type: "integer", NotNull: true},
		ColumnDef{Name: "name", Type: "text", NotNull: true},
		ColumnDef{Name: "email", Type: "text"},
	)

	pets = NewTable("pets",
		ColumnDef{Name: "id", Type: "integer", NotNull: true},
		ColumnDef{Name: "owner_id", Type: "integer", NotNull: true},
		ColumnDef{Name: "name", Type: "text", NotNull: true},
	)

	toys = NewTable("toys",
		ColumnDef{Name: "id", Type: "integer", NotNull: true},
		ColumnDef{Name: "pet_id", Type: "integer", NotNull: true},
		ColumnDef{Name: "label", Type: "text"},
	)

	return users, pets, toys
}

func ownerOf(pets, users *Table) Expression {
	return Eq(pets.Col("owner_id"), users.Col("id"))
}

func toyOf(toys, pets *Table) Expression {
	return Eq(toys.Col("pet_id"), pets.Col("id"))
}
