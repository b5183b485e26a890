// Package app wires the dashboard together and owns the HTTP server lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from .env, co2dash.yaml and CO2_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Create the dataset store, the dashboard service and the websocket manager
//	4. Set up HTTP handlers and middleware
//	5. Load the dataset and start the HTTP server
//	6. Shut down on SIGINT or SIGTERM
//
// # Routes
//
//	/ws                 interactive dashboard sessions
//	/metrics            Prometheus exposition of the OTel meter
//	/api/health         health, readiness and liveness
//	/api/version        build information
//	/api/dashboard      views, charts and exports
//
// # Usage
//
//	app, err := app.NewApplication(nil)
//	if err != nil {
//	    return err
//	}
//	return app.Run()
package app
