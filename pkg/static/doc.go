// Package static resolves request paths to file content for the router's
// static fallback.
//
// Two resolvers are provided: [Dir] serves a local directory through
// os.Root, and [S3] serves objects from an S3-compatible bucket.
// Both reject paths containing ".." segments and never serve directories.
//
//	dir, err := static.NewDir("./public")
//	if err != nil {
//	    return err
//	}
//	router := meract.NewRouter(meract.WithStatic(dir))
//
// Content types come from [MIMEType], which knows the usual web asset
// extensions and falls back to the system MIME database, then to
// application/octet-stream.
package static
