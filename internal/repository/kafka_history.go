package repository

import (
	"context"
	"strings"
	"time"

	"HyperTrack/internal/domain/models"
	pkgkafka "HyperTrack/pkg/kafka"
)

// KafkaHistory publishes every snapshot set per wallet to a topic for
// downstream consumers. Messages are keyed by wallet address so one
// wallet's history lands on one partition in order. The backend serves no
// reads; the history API returns empty results.
type KafkaHistory struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaHistory(producer *pkgkafka.Producer, topic string) *KafkaHistory {
	return &KafkaHistory{producer: producer, topic: topic}
}

func (k *KafkaHistory) Backend() string { return "kafka" }

func (k *KafkaHistory) Init(context.Context) error { return nil }

func (k *KafkaHistory) Record(ctx context.Context, set *models.SnapshotSet) error {
	if set == nil || len(set.Snapshots) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(set.Snapshots))
	for i := range set.Snapshots {
		snap := &set.Snapshots[i]
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(strings.ToLower(snap.Wallet.Address)),
			Value: map[string]interface{}{
				"tick":     set.Tick,
				"taken_at": set.TakenAt,
				"snapshot": snap,
			},
		})
	}
	return k.producer.PublishBatch(ctx, k.topic, msgs)
}

func (k *KafkaHistory) RecentTrades(context.Context, string, int) ([]models.TradeRecord, error) {
	return nil, nil
}

func (k *KafkaHistory) BalanceHistory(context.Context, string, string, time.Time) ([]models.BalancePoint, error) {
	return nil, nil
}

func (k *KafkaHistory) Health(context.Context) error { return nil }

func (k *KafkaHistory) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}
