// Package database connects to the object store backends.
//
// # Supported Backends
//
//   - MongoDB: GridFS buckets read and written with the official driver
//   - PostgreSQL: GridFS layout in SQL tables using a pgx connection pool
//   - SQLite: the same layout in an embedded database, for development and tests
//
// The backend is chosen from the DSN scheme (mongodb://, postgres://, file:
// or a .db path) and falls back to Config.Type.
//
// # Usage
//
//	db, err := database.Connect(ctx, database.Config{DSN: "mongodb://localhost:27017"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close(ctx)
//
// The HTTP server does not call Connect directly; it hands Dialer to a
// gridfetch.Pool so that each backend is dialed lazily and shared by every
// route that names it.
//
// # Subpackages
//
//   - database/mongodb: MongoDB implementation using mongo-driver
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
