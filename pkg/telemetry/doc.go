// Package telemetry provides observability for the inference gateway.
//
// # Components
//
//   - logging: structured logging with PII redaction
//   - metrics: Prometheus metrics collection
//   - health: liveness/readiness checks
//
// # PII Protection
//
// The gateway's process-wide log handler is built with RedactPII enabled
// (logging.Config leaves it off unless set), so string values matching the
// built-in patterns are redacted, for example:
//
//   - API keys: sk-abc123 → sk-***
//   - Emails: user@example.com → u***@example.com
//   - SSN: 123-45-6789 → ***-**-****
//   - IP addresses: 192.168.1.1 → 192.*.*.*
//
// Custom redaction patterns can be configured.
package telemetry
