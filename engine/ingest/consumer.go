package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/rentora/rentora-engine/engine/domain"
	"github.com/rentora/rentora-engine/pkg/natsutil"
)

const (
	// IngestSubject carries lease documents awaiting enrichment.
	IngestSubject = "contracts.ingest"
	// ResultSubject carries the per-lease enrichment outcome, success or
	// soft failure, for whoever owns the primary record.
	ResultSubject = "contracts.ingest.result"
	// DLQSubject receives messages that exhausted their retries.
	DLQSubject = "contracts.ingest.dlq"
	// MaxRetries before a message is parked on the DLQ.
	MaxRetries = 3
	// QueueGroup makes horizontally scaled workers share the subject, so
	// each document is processed by exactly one of them.
	QueueGroup = "contract-ingest"

	retryHeader = "X-Retry-Count"
)

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Doc     domain.LeaseDocument `json:"doc"`
	Error   string               `json:"error"`
	Retries int                  `json:"retries"`
}

// StartConsumer subscribes the pipeline to the ingest subject. Transient
// failures re-enter the queue with an incremented retry header; exhausted
// messages go to the DLQ. Every attempt's outcome is published on the
// result subject so the caller that saved the primary record can surface
// soft failures.
func StartConsumer(nc *nats.Conn, p *Pipeline, logger *slog.Logger) (*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}

	return nc.QueueSubscribe(IngestSubject, QueueGroup, func(msg *nats.Msg) {
		var doc domain.LeaseDocument
		if err := json.Unmarshal(msg.Data, &doc); err != nil {
			logger.Error("ingest: unmarshal failed", "err", err)
			return
		}

		ctx := context.Background()
		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get(retryHeader); v != "" {
				retries, _ = strconv.Atoi(v)
			}
		}

		report, err := p.Ingest(ctx, doc)
		result := EnrichmentResult{LeaseID: doc.LeaseID, ChunksStored: report.ChunksStored}

		if err != nil {
			result.Error = err.Error()
			retries++
			logger.Error("ingest: pipeline failed",
				"err", err,
				"lease_id", doc.LeaseID,
				"retry", retries,
			)

			switch {
			case domain.IsTransient(err) && retries < MaxRetries:
				retryMsg := nats.NewMsg(IngestSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set(retryHeader, strconv.Itoa(retries))
				if perr := nc.PublishMsg(retryMsg); perr != nil {
					logger.Error("ingest: retry publish failed", "err", perr)
				}
			default:
				if perr := natsutil.Publish(ctx, nc, DLQSubject, dlqMessage{
					Doc:     doc,
					Error:   err.Error(),
					Retries: retries,
				}); perr != nil {
					logger.Error("ingest: DLQ publish failed", "err", perr)
				}
			}
		} else {
			logger.Info("ingest: success", "lease_id", doc.LeaseID, "chunks", report.ChunksStored)
		}

		if perr := natsutil.Publish(ctx, nc, ResultSubject, result); perr != nil {
			logger.Error("ingest: result publish failed", "err", perr)
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}
