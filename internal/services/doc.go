// Package services holds the business logic between the transports
// (HTTP, WebSocket, CLI) and the emissions pipeline.
//
// DatasetStore loads the emissions table and the optional geometry once per
// process and serves them read-only. DashboardService derives every chart
// view from that dataset on each call: the year map, the top-n ranking, the
// country series and the combined snapshot used by interactive sessions.
// Empty selections produce warnings attached to the affected chart rather
// than errors.
//
// HealthService reports liveness and readiness, where readiness means the
// dataset loaded successfully.
//
// # Usage
//
//	store := services.NewDatasetStore(services.StoreConfig{
//		EmissionsFile: cfg.Data.EmissionsFile,
//		GeometryFile:  cfg.Data.GeometryFile,
//	}, logger, metrics)
//	dashboard := services.NewDashboardService(store, services.DashboardOptions{}, logger, tracer, metrics)
//	snap, err := dashboard.Snapshot(ctx, services.Controls{Year: 2020})
package services
