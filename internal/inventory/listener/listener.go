package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/inventory"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventStockReceived = "StockReceived"

// MessageReader is satisfied by *broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type InventoryListener struct {
	consumer MessageReader
	uc       inventory.UseCase
	logger   logger.ZapLogger
}

func NewInventoryListener(consumer MessageReader, uc inventory.UseCase, logger logger.ZapLogger) *InventoryListener {
	return &InventoryListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("Starting Inventory Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Inventory Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type StockReceivedEvent struct {
	EventID   string               `json:"event_id"`
	EventType string               `json:"event_type"`
	Payload   StockReceivedPayload `json:"payload"`
	Timestamp time.Time            `json:"timestamp"`
}

type StockReceivedPayload struct {
	Reference  string              `json:"reference"`
	ReceivedBy string              `json:"received_by"`
	Items      []ReceivedItemEntry `json:"items"`
}

type ReceivedItemEntry struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (l *InventoryListener) processMessage(ctx context.Context, value []byte) {
	var event StockReceivedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventStockReceived {
		return
	}

	l.logger.Info("Processing StockReceived event", zap.String("reference", event.Payload.Reference))

	for _, item := range event.Payload.Items {
		if item.Quantity <= 0 {
			l.logger.Warn("Ignoring non-positive receipt line",
				zap.String("reference", event.Payload.Reference),
				zap.String("product_id", item.ProductID),
			)
			continue
		}

		input := &dto.AdjustInventoryInput{
			ProductID:      item.ProductID,
			QuantityChange: item.Quantity,
			Type:           model.TransactionPurchase,
			Reason:         "Stock received",
			Reference:      event.Payload.Reference,
			UserID:         event.Payload.ReceivedBy,
		}

		if _, err := l.uc.AdjustInventory(ctx, input); err != nil {
			l.logger.Error("Failed to adjust inventory for receipt line",
				zap.String("reference", event.Payload.Reference),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}
}
