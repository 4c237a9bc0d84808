// Package registry owns the gateway's only durable shared state: the set of
// registered inference backends. SQLiteStore persists it across restarts;
// MemoryStore is a faithful in-process substitute used in tests.
package registry
