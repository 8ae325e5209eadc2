package common

import (
	"context"
	"fmt"
	"math"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/songquanpeng/litegate/common/logger"
)

var relayGoPool gopool.Pool

func init() {
	relayGoPool = gopool.NewPool("gopool.RelayPool", math.MaxInt32, gopool.NewConfig())
	relayGoPool.SetPanicHandler(func(ctx context.Context, i interface{}) {
		logger.Error(ctx, fmt.Sprintf("panic in gopool.RelayPool: %v", i))
	})
}

// RelayCtxGo runs f on the shared relay pool. Used for work that must not
// block the caller, such as usage recording and cache writes.
func RelayCtxGo(ctx context.Context, f func()) {
	relayGoPool.CtxGo(ctx, f)
}
