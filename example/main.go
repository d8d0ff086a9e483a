package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/donseba/selq"
	"github.com/donseba/selq/session"
)

type (
	Article struct {
		ID         int    `db:"id"`
		Title      string `db:"title"`
		Content    string `db:"content"`
		AuthorID   int    `db:"author_id"`
		CategoryID *int   `db:"category_id"`
	}

	Author struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
	}

	Category struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
	}
)

func (*Article) Table() string {
	return "article"
}

func (*Author) Table() string {
	return "author"
}

func (*Category) Table() string {
	return "category"
}

const schema = `
CREATE TABLE author (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE category (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE article (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	author_id INTEGER NOT NULL,
	category_id INTEGER
);
INSERT INTO author VALUES (1, 'Ada'), (2, 'Linus');
INSERT INTO category VALUES (1, 'Go');
INSERT INTO article VALUES (1, 'Channels', '...', 1, 1), (2, 'Drafts', '...', 1, NULL);
`

func main() {
	ctx := context.TODO()

	sess, err := session.Open(&session.Config{Driver: "sqlite", LogLevel: "debug"})
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	if _, err := sess.Exec(ctx, schema); err != nil {
		log.Fatal(err)
	}

	var (
		article  = selq.MustTableOf(&Article{})
		author   = selq.MustTableOf(&Author{})
		category = selq.MustTableOf(&Category{})
	)

	// every article with its author and, when it has one, its category
	list := sess.Builder().
		Select().
		From(article).
		InnerJoin(author, selq.Eq(author.Col("id"), article.Col("author_id"))).
		LeftJoin(category, selq.Eq(category.Col("id"), article.Col("category_id"))).
		OrderBy(selq.AscOf(article.Col("title")))

	rows, err := list.All(ctx, nil)
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rows)

	// the same list reused as a subquery: the category columns of the
	// left join are nullable even though the table declares them not null
	sub := list.As("listing")

	authors := sess.Builder().
		Select(
			selq.Item("author", sub.Col("author", "name")),
			selq.Item("category", sub.Col("category", "name")),
		).
		From(sub).
		Where(selq.Eq(sub.Col("author", "id"), selq.Param("author")))

	rows, err = authors.All(ctx, selq.Params{"author": 1})
	if err != nil {
		log.Fatal(err)
	}

	_ = enc.Encode(rows)
	log.Printf("category nullable in listing: %t", !sub.Col("category", "name").IsNotNull())
}
