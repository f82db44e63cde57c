package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pricewatch-service/internal/models"
	"pricewatch-service/internal/util"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing change events. Messages are keyed by
// product id so per-product ordering is preserved across partitions.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPriceChange publishes a PriceChange event
func (ep *EventPublisher) PublishPriceChange(ctx context.Context, event *models.PriceChangeEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(models.EventTypePriceChange).Inc()
	return nil
}

// PublishStockChange publishes a StockChange event
func (ep *EventPublisher) PublishStockChange(ctx context.Context, event *models.StockChangeEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(models.EventTypeStockChange).Inc()
	return nil
}

// PublishNewProduct publishes a NewProduct event
func (ep *EventPublisher) PublishNewProduct(ctx context.Context, event *models.NewProductEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.EventsPublishedTotal.WithLabelValues(models.EventTypeNewProduct).Inc()
	return nil
}

// EventHandler routes consumed change events to registered handlers
type EventHandler struct {
	onPriceChange func(context.Context, *models.PriceChangeEvent) error
	onStockChange func(context.Context, *models.StockChangeEvent) error
	onNewProduct  func(context.Context, *models.NewProductEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnPriceChange registers a handler for PriceChange events
func (eh *EventHandler) OnPriceChange(handler func(context.Context, *models.PriceChangeEvent) error) {
	eh.onPriceChange = handler
}

// OnStockChange registers a handler for StockChange events
func (eh *EventHandler) OnStockChange(handler func(context.Context, *models.StockChangeEvent) error) {
	eh.onStockChange = handler
}

// OnNewProduct registers a handler for NewProduct events
func (eh *EventHandler) OnNewProduct(handler func(context.Context, *models.NewProductEvent) error) {
	eh.onNewProduct = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypePriceChange:
		if eh.onPriceChange != nil {
			var event models.PriceChangeEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PriceChange event: %w", err)
			}
			return eh.onPriceChange(ctx, &event)
		}

	case models.EventTypeStockChange:
		if eh.onStockChange != nil {
			var event models.StockChangeEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockChange event: %w", err)
			}
			return eh.onStockChange(ctx, &event)
		}

	case models.EventTypeNewProduct:
		if eh.onNewProduct != nil {
			var event models.NewProductEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal NewProduct event: %w", err)
			}
			return eh.onNewProduct(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
