// Package observability turns lifecycle events into structured logs and
// Prometheus metrics.
//
// Both are delivered as domain.LifecycleHooks so they can be combined and
// handed to the agent and the chat service:
//
//	metrics := observability.NewMetrics()
//	hooks := observability.Combine(observability.LoggingHooks(logger), metrics.Hooks())
package observability
