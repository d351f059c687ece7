/*
Package api exposes the orchestrator over HTTP.

The surface is JSON over gin. Assets are ingested by multipart upload
or as inline values, tasks are submitted against a module contract, and
module records are read-only projections of the registry's state plus a
manual scan trigger. /events streams broker events as server-sent
events, /metrics serves Prometheus, and /healthz is a liveness probe.

Task submission maps orchestrator validation rejections to 422 so
clients can distinguish a bad submission from a server fault. Asset
download is deliberately strict: anything that is not an AVAILABLE
FILE asset with its backing file still on disk is a 404.

The server depends on the orchestrator and registry only through the
narrow TaskSubmitter and ModuleScanner interfaces, which keeps the
handlers testable against fakes.
*/
package api
