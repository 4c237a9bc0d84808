package auth

// contextKey namespaces values this package stores in a request context,
// avoiding collisions with keys set by other middleware.
type contextKey string

const authenticatedKey contextKey = "admin_authenticated"
