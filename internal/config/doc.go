// Package config loads co2dash configuration.
//
// Sources are applied in order, each overriding the previous one:
//
//	1. Default()
//	2. co2dash.yaml (working directory, configs/, or CO2_CONFIG_FILE)
//	3. CO2_* environment variables, including those set from a .env file
//
// Environment variables mirror the YAML structure:
//
//	CO2_SERVER_PORT=8080
//	CO2_DATA_EMISSIONS_FILE=data/annual-co2-emissions-per-country.csv
//	CO2_DATA_GEOMETRY_FILE=data/ne_50m_admin_0_countries.geojson
//	CO2_DATA_AGGREGATION=sum
//	CO2_LOGGING_LEVEL=debug
//	CO2_TELEMETRY_TRACE_EXPORTER=stdout
package config
