// Package tests holds shared fixtures and mocks, plus suites that run against
// real infrastructure.
//
// Integration and end-to-end suites start PostgreSQL with testcontainers and
// are guarded by build tags:
//
//	go test -tags=integration ./tests/integration/...
//	go test -tags=e2e ./tests/e2e/...
package tests
