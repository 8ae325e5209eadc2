package completion

import (
	"context"
	"time"

	"github.com/songquanpeng/litegate/common"
	"github.com/songquanpeng/litegate/relay/model"
)

// Record describes one finished completion call.
type Record struct {
	RequestId         string
	Provider          string
	Model             string
	ActualModel       string
	Usage             *model.Usage
	Stream            bool
	CacheHit          bool
	Failed            bool
	ErrorMessage      string
	Duration          time.Duration
	FirstTokenLatency time.Duration
}

type Recorder interface {
	Record(ctx context.Context, record *Record)
}

type RecorderFunc func(ctx context.Context, record *Record)

func (f RecorderFunc) Record(ctx context.Context, record *Record) {
	f(ctx, record)
}

// record hands the record to every recorder on the relay pool so callers
// never wait for storage.
func (c *Client) record(ctx context.Context, record *Record) {
	if len(c.recorders) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, recorder := range c.recorders {
		common.RelayCtxGo(ctx, func() {
			recorder.Record(ctx, record)
		})
	}
}
