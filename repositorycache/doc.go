// Package repositorycache provides a typed, cached repository over one
// document collection.
//
// Repository[T] maps documents onto T through json struct tags and routes
// every call through the hooks package, so reads share the container's query
// cache (keys, staleness, retry, statistics) and writes share its
// invalidation and audit pipeline.
//
//	type User struct {
//		ID   string `json:"id"`
//		Name string `json:"name"`
//	}
//
//	users, err := repositorycache.New[User](container, "")
//	if err != nil {
//		return err
//	}
//	u, err := users.GetByID(ctx, "u1")
//	adults, total, err := users.List(ctx, (&query.Descriptor{}).Where("age", ">=", 18))
//
// An empty collection name derives one from the type: User becomes "users",
// OrderLine becomes "order_lines".
//
// # Cached vs pass-through operations
//
// Get, GetByID, List and Count are cached reads. Create, Update and Delete
// run the write hooks: the collection and the touched document are
// invalidated and, when enabled, an audit entry is written.
//
// # Limitations
//
// Nested struct fields are stored as nested maps, so types such as time.Time
// should be stored as strings or read through the hooks directly.
package repositorycache
