package application_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures dispatch cycles leave no goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
