package bunx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

// queryLogHook writes one debug line per query. Failed queries other than
// sql.ErrNoRows are logged at warn level.
type queryLogHook struct {
	logger logrus.FieldLogger
}

var _ bun.QueryHook = (*queryLogHook)(nil)

func (h *queryLogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	entry := h.logger.WithFields(logrus.Fields{
		"operation": event.Operation(),
		"duration":  time.Since(event.StartTime).String(),
	})
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		entry.WithError(event.Err).Warn(event.Query)
		return
	}
	entry.Debug(event.Query)
}
