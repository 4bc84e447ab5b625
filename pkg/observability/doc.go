/*
Package observability provides tools for monitoring the pacer engine.

Metrics exposes Prometheus collectors as domain.LifecycleHooks, so they can be
merged with any other hooks passed to the engine.
*/
package observability
