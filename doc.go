// Package mappify maps Go structs to SQL tables and runs finder, CRUD,
// association and transaction operations over MySQL, PostgreSQL and SQLite.
//
// Entities are plain structs. Columns come from `db` tags (untagged
// exported fields use their snake_case name), the primary key is the "id"
// column unless a field is tagged `db:"name,pk"`, and fields tagged
// `rel:"alias"` receive populated associations:
//
//	type User struct {
//	    ID    int64   `db:"id"`
//	    Name  string  `db:"name"`
//	    Posts []*Post `rel:"posts"`
//	}
//
//	client, err := mappify.Open(ctx, cfg)
//	users := mappify.MustModel[User](client)
//	posts := mappify.MustModel[Post](client)
//	err = users.HasMany(posts, mappify.AssocOptions{As: "posts"})
//
//	u, err := users.FindOne(ctx, mappify.Options{
//	    Where: where.Filter{where.C("name", "Ann")},
//	})
//	u, err = users.Populate(ctx, u, "posts")
//
// Filters are compiled by package where. Every value is sent as a bound
// parameter; identifiers are validated and never quoted.
//
// Finders (FindOne, FindAll, FindByID, Fetch) report a missing row as a
// nil result. The locate-and-mutate operations (FindOneAndUpdate,
// FindByIDAndDelete, ...) report it as a *NotFoundError.
//
// A transaction is bound to a context with NewTxContext, or by WithTx,
// and every model call made with that context runs on it.
package mappify
