package kafka

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/storefront/internal/domain/order"
)

const publishTimeout = 10 * time.Second

// AsyncPublisher decouples event delivery from the request path. Publish
// only enqueues; a background worker writes to Kafka. A transition never
// waits on the broker, and a full queue drops the event rather than
// blocking the caller.
type AsyncPublisher struct {
	producer order.Publisher
	queue    chan order.Event
	done     chan struct{}
	started  atomic.Bool
	once     sync.Once
}

func NewAsyncPublisher(producer order.Publisher, buffer int) *AsyncPublisher {
	return &AsyncPublisher{
		producer: producer,
		queue:    make(chan order.Event, buffer),
		done:     make(chan struct{}),
	}
}

// Start runs the delivery worker until ctx is cancelled, then drains
// whatever is left in the queue. Only the first call starts a worker.
func (a *AsyncPublisher) Start(ctx context.Context) {
	if !a.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(a.done)
		for {
			select {
			case <-ctx.Done():
				a.drain()
				return
			case event := <-a.queue:
				a.deliver(event)
			}
		}
	}()
}

// Publish enqueues an event. It never blocks: if the queue is full the
// event is dropped and logged.
func (a *AsyncPublisher) Publish(ctx context.Context, key string, event order.Event) error {
	select {
	case a.queue <- event:
	default:
		log.Printf("[Events] Queue full, dropping %s event for %s", event.Type, event.OrderNumber)
	}
	return nil
}

// Close waits for the worker to finish after Start's context ends. It
// returns immediately if the worker was never started.
func (a *AsyncPublisher) Close() {
	a.once.Do(func() {
		if !a.started.Load() {
			return
		}
		<-a.done
	})
}

func (a *AsyncPublisher) deliver(event order.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := a.producer.Publish(ctx, event.OrderNumber, event); err != nil {
		log.Printf("[Events] Failed to publish %s event for %s: %v", event.Type, event.OrderNumber, err)
	}
}

func (a *AsyncPublisher) drain() {
	for {
		select {
		case event := <-a.queue:
			a.deliver(event)
		default:
			return
		}
	}
}
