package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// LeadChangesChannel is the NOTIFY channel fed by the trigger on the leads
// table (see migrations/001_pipeline.sql).
const LeadChangesChannel = "lead_changes"

// LeadListener turns Postgres notifications on the leads table into
// LeadChange events. Any writer (this service, the portal, manual SQL)
// triggers them.
type LeadListener struct {
	listener *pq.Listener
	handle   func(ctx context.Context, change entity.LeadChange) error
}

func NewLeadListener(connString string, handle func(ctx context.Context, change entity.LeadChange) error) (*LeadListener, error) {
	l := pq.NewListener(connString, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).WithField("event", ev).Warn("lead listener connection event")
		}
	})
	if err := l.Listen(LeadChangesChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("listen %s: %w", LeadChangesChannel, err)
	}
	return &LeadListener{listener: l, handle: handle}, nil
}

// Run blocks until ctx is done.
func (l *LeadListener) Run(ctx context.Context) {
	defer l.listener.Close()
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.listener.Notify:
			if n == nil {
				// reconnected; notifications sent while we were away are lost
				log.Warn("lead listener reconnected")
				continue
			}
			change, err := DecodeLeadChange([]byte(n.Extra))
			if err != nil {
				log.WithError(err).WithField("payload", n.Extra).Warn("discarding malformed lead notification")
				continue
			}
			if err := l.handle(ctx, change); err != nil {
				log.WithError(err).WithField("tenant_id", change.TenantID).Error("lead change not relayed")
			}
		case <-ping.C:
			if err := l.listener.Ping(); err != nil {
				log.WithError(err).Warn("lead listener ping failed")
			}
		}
	}
}

// DecodeLeadChange parses the trigger payload.
func DecodeLeadChange(payload []byte) (entity.LeadChange, error) {
	var change entity.LeadChange
	if err := json.Unmarshal(payload, &change); err != nil {
		return change, err
	}
	if change.TenantID == "" {
		return change, fmt.Errorf("%w: lead change without tenant", entity.ErrMalformedRow)
	}
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now()
	}
	return change, nil
}
