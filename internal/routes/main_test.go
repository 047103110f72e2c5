package routes

import (
	"io"
	"os"
	"testing"

	"github.com/example/foodshare/internal/logging"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
	os.Exit(m.Run())
}
