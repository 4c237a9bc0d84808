// Package health implements backend liveness checking: a bounded one-shot
// Probe and the Monitor that schedules it against every active registry
// entry on a fixed interval, applying consecutive-failure hysteresis.
package health
