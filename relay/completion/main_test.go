package completion

import (
	"os"
	"testing"

	"github.com/songquanpeng/litegate/common/config"
)

func TestMain(m *testing.M) {
	config.ApproximateTokenEnabled = true
	os.Exit(m.Run())
}
