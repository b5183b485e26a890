// Package shared holds helpers used across packages that belong to no
// single layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- Emissions CSV and GeoJSON fixtures written to t.TempDir()
//	- BufferedSlogHandler for asserting on structured log output
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteFixture(t, "emissions.csv", testutil.SingleMetricCSV)
//	    // ...
//	    assert.True(t, logs.ContainsMessage("dataset ready"))
//	}
package shared
