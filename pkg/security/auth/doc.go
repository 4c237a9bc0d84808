/*
Package auth provides admin API key authentication for the gateway's
registration and management endpoints.

The gateway has exactly one administrative credential, configured at
startup via ADMIN_API_KEY. Requests to protected endpoints must present
it in the X-API-Key header; the comparison runs in constant time and the
key is never logged.

# Basic Usage

	validator := auth.NewValidator(cfg.AdminAPIKey)
	middleware := auth.NewMiddleware(validator)

	http.Handle("/admin/", middleware.Handle(adminHandler))

# Security Considerations

  - The admin key is never logged, including on authentication failures.
  - Key comparison uses crypto/subtle to avoid timing side channels.
  - There is no key rotation or multi-key support; operators rotate by
    restarting the process with a new ADMIN_API_KEY.
*/
package auth
