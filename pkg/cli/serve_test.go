package cli

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/pushdeploy/pkg/controller/http"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/utils/async"
)

type noopWebhook struct{}

func (noopWebhook) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	return nil
}

func newTestServer(t *testing.T, addr string) *controller.Server {
	t.Helper()
	server, err := controller.NewServer(context.Background(), noopWebhook{},
		controller.WithAddr(addr),
		controller.WithWebhookSecret("secret"),
	)
	gt.NoError(t, err)
	return server
}

func TestServe(t *testing.T) {
	t.Run("drains accepted pipelines after cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		queue := async.NewQueue()

		var finished atomic.Bool
		queue.Dispatch(ctx, func(ctx context.Context) error {
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
			return nil
		})
		cancel()

		gt.NoError(t, serve(ctx, newTestServer(t, "127.0.0.1:0"), queue, time.Second))
		gt.True(t, finished.Load())
	})

	t.Run("listener failure is returned", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		gt.NoError(t, err)
		t.Cleanup(func() { _ = ln.Close() })

		err = serve(context.Background(), newTestServer(t, ln.Addr().String()), async.NewQueue(), time.Second)
		gt.Error(t, err)
	})
}
