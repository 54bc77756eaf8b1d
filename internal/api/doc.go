// Package api exposes InsightHub over HTTP: session management, chat
// (synchronous and SSE streaming), knowledge base ingestion, dataset
// loading and querying, report artifacts, and the agent catalog.
//
// All routes live under /api/v1 behind a middleware stack (recovery,
// request ID, logging, CORS, per-IP rate limiting). Health probes are
// served outside the stack so load balancers are never rate limited.
package api
