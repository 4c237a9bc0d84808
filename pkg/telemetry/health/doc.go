// Package health provides a component health check registry for the
// inference gateway.
//
// # Overview
//
// Checker lets independent components (the registry store, in particular)
// register a CheckFunc describing how to tell if they are healthy. The
// gateway's /health handler calls CheckReadiness to aggregate them into a
// single response.
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("database", func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
//
//	status := checker.CheckReadiness(ctx)
//
// # Status Values
//
// CheckReadiness returns "ready" when every registered check passes, or
// "degraded" if any check fails. CheckLiveness always returns "ok" — it
// only reports that the process is running.
package health
