package worker

import (
	"context"
	"encoding/json"
	"log"

	"pricewatch-service/internal/broker"
	"pricewatch-service/internal/ingest"
	"pricewatch-service/internal/models"
	"pricewatch-service/internal/store"
	"pricewatch-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ListingWorker consumes raw listings published by the site fetchers and
// stages them for the next run.
type ListingWorker struct {
	consumer *broker.Consumer
	buffer   *ingest.Buffer
	logger   *zap.Logger
}

// NewListingWorker creates a new listing worker
func NewListingWorker(consumer *broker.Consumer, buffer *ingest.Buffer) *ListingWorker {
	return &ListingWorker{
		consumer: consumer,
		buffer:   buffer,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *ListingWorker) Start(ctx context.Context) error {
	log.Println("Starting listing worker...")

	return w.consumer.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		var listing models.RawListing
		if err := json.Unmarshal(msg.Value, &listing); err != nil {
			// a broken message is dropped, not retried forever
			w.logger.Warn("Failed to unmarshal raw listing", zap.Error(err))
			return nil
		}
		w.buffer.Add(listing)
		return nil
	})
}

// Stop stops the worker
func (w *ListingWorker) Stop() error {
	log.Println("Stopping listing worker...")
	return w.consumer.Close()
}

// Notifier is the hand-off port to the excluded notification collaborator.
type Notifier interface {
	NotifyPriceChange(ctx context.Context, event *models.PriceChangeEvent) error
	NotifyStockChange(ctx context.Context, event *models.StockChangeEvent) error
	NotifyNewProduct(ctx context.Context, event *models.NewProductEvent) error
}

// LogNotifier is the default Notifier: it writes the event to the log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs every event.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (n *LogNotifier) NotifyPriceChange(_ context.Context, event *models.PriceChangeEvent) error {
	n.logger.Info("Price change notification",
		zap.Int64("product_id", event.ProductID),
		zap.String("site", event.SiteName),
		zap.String("percent", event.ChangePercent.String()),
		zap.String("recommendation", event.Recommendation))
	return nil
}

func (n *LogNotifier) NotifyStockChange(_ context.Context, event *models.StockChangeEvent) error {
	n.logger.Info("Stock change notification",
		zap.Int64("product_id", event.ProductID),
		zap.String("site", event.SiteName),
		zap.String("change_type", event.ChangeType),
		zap.String("recommendation", event.Recommendation))
	return nil
}

func (n *LogNotifier) NotifyNewProduct(_ context.Context, event *models.NewProductEvent) error {
	n.logger.Info("New product notification",
		zap.Int64("product_id", event.ProductID),
		zap.String("product", event.ProductName),
		zap.String("site", event.SiteName))
	return nil
}

// DeliveryWorker consumes change events, hands them to the Notifier and
// flips the is_notified marker on successful delivery. Notifiers that
// poll instead of consuming can use the changes API.
type DeliveryWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	notifier     Notifier
	logger       *zap.Logger
}

// NewDeliveryWorker creates a new delivery worker
func NewDeliveryWorker(consumer *broker.Consumer, st *store.Store, notifier Notifier) *DeliveryWorker {
	w := &DeliveryWorker{
		consumer: consumer,
		store:    st,
		notifier: notifier,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPriceChange(w.handlePriceChange)
	eventHandler.OnStockChange(w.handleStockChange)
	eventHandler.OnNewProduct(w.handleNewProduct)
	w.eventHandler = eventHandler

	return w
}

// Start starts the delivery worker
func (w *DeliveryWorker) Start(ctx context.Context) error {
	log.Println("Starting delivery worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the delivery worker
func (w *DeliveryWorker) Stop() error {
	log.Println("Stopping delivery worker...")
	return w.consumer.Close()
}

func (w *DeliveryWorker) handlePriceChange(ctx context.Context, event *models.PriceChangeEvent) error {
	if err := w.notifier.NotifyPriceChange(ctx, event); err != nil {
		return err
	}
	util.EventsDeliveredTotal.WithLabelValues(models.EventTypePriceChange).Inc()
	if err := w.store.MarkPriceChangesNotified(ctx, []int64{event.ChangeID}); err != nil {
		w.logger.Error("Failed to mark price change notified",
			zap.Int64("change_id", event.ChangeID), zap.Error(err))
	}
	return nil
}

func (w *DeliveryWorker) handleStockChange(ctx context.Context, event *models.StockChangeEvent) error {
	if err := w.notifier.NotifyStockChange(ctx, event); err != nil {
		return err
	}
	util.EventsDeliveredTotal.WithLabelValues(models.EventTypeStockChange).Inc()
	if err := w.store.MarkStockChangesNotified(ctx, []int64{event.ChangeID}); err != nil {
		w.logger.Error("Failed to mark stock change notified",
			zap.Int64("change_id", event.ChangeID), zap.Error(err))
	}
	return nil
}

func (w *DeliveryWorker) handleNewProduct(ctx context.Context, event *models.NewProductEvent) error {
	if err := w.notifier.NotifyNewProduct(ctx, event); err != nil {
		return err
	}
	util.EventsDeliveredTotal.WithLabelValues(models.EventTypeNewProduct).Inc()
	return nil
}
