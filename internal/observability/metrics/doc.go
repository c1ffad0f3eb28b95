// Package metrics holds process-wide Prometheus collectors that do not
// belong to a single component. Component metrics (delivery attempts,
// limiter queues, auth checks) live next to the code that records them.
package metrics
