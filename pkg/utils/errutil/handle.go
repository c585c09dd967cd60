package errutil

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/utils/logging"
)

// Handle logs err and reports it to Sentry. Reporting is a no-op until sentry.Init has been called.
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range goerr.Values(err) {
			scope.SetExtra(k, v)
		}
	})
	evID := hub.CaptureException(err)

	attrs := []any{logging.ErrAttr(err)}
	if evID != nil {
		attrs = append(attrs, slog.Any("sentry.id", *evID))
	}
	logging.From(ctx).Error(err.Error(), attrs...)
}
