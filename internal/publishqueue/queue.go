package publishqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/configtree"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
)

// Event is the unit of dispatch: one configuration-tree notification.
type Event = configtree.Notification

// Listener observes every Event pushed to a Queue, in push order.
type Listener func(Event)

const topic = "configtree.notifications"

// Queue is the single-threaded serialized publish lane. The zero value is
// not usable; construct with New.
type Queue struct {
	mu        sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
	closed    bool

	pubsub *gochannel.GoChannel
	router *message.Router

	runDone chan struct{}
	runErr  error
}

// New constructs a Queue and wires its single handler. Run must be called
// to start the drain goroutine before any pushed Event will reach
// listeners.
func New() (*Queue, error) {
	logger := newZerologAdapter(logging.Logger())

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("publishqueue: create router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	q := &Queue{
		listeners: make(map[uint64]Listener),
		pubsub:    pubsub,
		router:    router,
		runDone:   make(chan struct{}),
	}

	router.AddConsumerHandler("publishqueue.drain", topic, pubsub, q.handle)

	return q, nil
}

// Run starts the drain goroutine and blocks until ctx is cancelled or
// Close is called. It is meant to be run in its own goroutine alongside
// the rest of a service's lifecycle.
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.runDone)
	err := q.router.Run(ctx)
	q.mu.Lock()
	q.runErr = err
	q.mu.Unlock()
	return err
}

// Subscribe registers listener to observe every future Event and returns a
// function that removes it. Listeners run synchronously on the single
// drain goroutine, in push order, so a slow listener delays every other
// listener and every later Event — keep listeners fast.
func (q *Queue) Subscribe(listener Listener) (unsubscribe func()) {
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	q.listeners[id] = listener
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.listeners, id)
		q.mu.Unlock()
	}
}

// Push enqueues event for delivery to every current listener, in the order
// Push is called. Delivery happens on the drain goroutine started by Run;
// Push itself never blocks on listener execution.
func (q *Queue) Push(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publishqueue: marshal event: %w", err)
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	if err := q.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publishqueue: publish: %w", err)
	}
	return nil
}

// Close stops accepting new handler work and waits for the router to shut
// down. Close is idempotent.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	if err := q.router.Close(); err != nil {
		return fmt.Errorf("publishqueue: close router: %w", err)
	}
	<-q.runDone
	return nil
}

func (q *Queue) handle(msg *message.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Warn().Err(err).Msg("publishqueue: dropping undecodable event")
		return nil
	}

	q.mu.Lock()
	listeners := make([]Listener, 0, len(q.listeners))
	for _, l := range q.listeners {
		listeners = append(listeners, l)
	}
	q.mu.Unlock()

	for _, l := range listeners {
		l(event)
	}
	return nil
}

var _ watermill.LoggerAdapter = zerologAdapter{}
