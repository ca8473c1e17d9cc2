// Package main hosts the station directory sync job.
//
// Architecture overview:
//   - Run gate: a pure every-Nth-day predicate (internal/schedule) is checked first. Off days exit 0 without
//     touching the store or the network; schedule.force bypasses it.
//   - Store: internal/storage opens MongoDB (default), Postgres or an in-memory store once. Failing to connect is
//     fatal (exit 1) because nothing can be read or written.
//   - Tasks: internal/tasks reads country and place search configurations from the settings collection, falling
//     back to a single default country search when none are usable.
//   - Pipeline: for each task, internal/resolver picks the content page from one search request,
//     internal/extractor turns its channel items into canonical documents and internal/merge upserts them in one
//     bulk write. Tasks run sequentially; a failing task never stops later ones.
//   - Observability: zap logs go to the console and, through internal/audit, to the audit collection. The
//     progress Hub batches run/task events for a debug log sink and Prometheus collectors, which are pushed to a
//     Pushgateway when metrics.pushgateway_url is set. A Pub/Sub notification is published per synced task when
//     pubsub.topic_name is set.
//
// Quick checklist:
//   - Configure env vars: STATIONSYNC_STORE_DRIVER, STATIONSYNC_STORE_URI, STATIONSYNC_STORE_DATABASE,
//     STATIONSYNC_SCHEDULE_INTERVAL_DAYS, STATIONSYNC_SCHEDULE_FORCE, STATIONSYNC_UPSTREAM_BASE_URL, plus optional
//     pubsub and metrics settings. STATIONSYNC_CONFIG_FILE points at an optional YAML/JSON/TOML file.
//   - Run locally: STATIONSYNC_STORE_DRIVER=memory go run ./cmd/stationsync --force
//   - Flags: --config overrides STATIONSYNC_CONFIG_FILE; --force bypasses the run gate.
//   - Exit codes: 0 on success or an off day, 1 on a fatal startup or task-loading failure.
package main
