// Package config loads the gateway's env-var configuration surface once at
// startup and exposes it through a process-wide singleton for the
// remainder of the process lifetime. See Load and Initialize.
package config
