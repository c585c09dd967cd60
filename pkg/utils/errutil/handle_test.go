package errutil_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/utils/errutil"
	"github.com/m-mizutani/seochat/pkg/utils/logging"
)

type testTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (x *testTransport) Configure(options sentry.ClientOptions) {}
func (x *testTransport) SendEvent(event *sentry.Event) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, event)
}
func (x *testTransport) Flush(timeout time.Duration) bool { return true }
func (x *testTransport) FlushWithContext(ctx context.Context) bool {
	return true
}
func (x *testTransport) Close() {}

func TestHandle(t *testing.T) {
	transport := &testTransport{}
	gt.NoError(t, sentry.Init(sentry.ClientOptions{
		Dsn:       "https://test@test.ingest.sentry.io/test",
		Transport: transport,
	}))
	defer sentry.Flush(0)

	buf := &bytes.Buffer{}
	ctx := logging.With(context.Background(), logging.New("info", buf))

	err := goerr.New("webhook failed",
		goerr.V("status", 500),
		goerr.T(model.TagRequest),
	)
	errutil.Handle(ctx, err)
	sentry.Flush(0)

	gt.S(t, buf.String()).Contains("webhook failed")

	transport.mu.Lock()
	defer transport.mu.Unlock()
	gt.A(t, transport.events).Length(1)
	gt.V(t, transport.events[0].Extra["status"]).Equal(500)
}

func TestHandleNil(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logging.With(context.Background(), logging.New("info", buf))
	errutil.Handle(ctx, nil)
	gt.S(t, buf.String()).Equal("")
}
