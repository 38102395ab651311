package store

// TestState is the shared state fixture for the package-internal Store
// tests (memory_test.go, sqlite_test.go, mysql_test.go).
type TestState struct {
	Value   string `json:"value"`
	Counter int    `json:"counter"`
}
