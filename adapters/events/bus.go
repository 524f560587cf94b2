package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// Bus is a publisher and subscriber pair sharing one transport
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both halves of the bus
func (b *Bus) Close() error {
	if err := b.Publisher.Close(); err != nil {
		return err
	}
	return b.Subscriber.Close()
}

// NewInProcessBus creates a bus for views running in the same process
func NewInProcessBus(logger watermill.LoggerAdapter) *Bus {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logger)
	return &Bus{Publisher: pubSub, Subscriber: pubSub}
}

// NewRedisBus creates a bus over Redis streams so several dashboard processes share events
func NewRedisBus(client redis.UniversalClient, consumerGroup string, logger watermill.LoggerAdapter) (*Bus, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger)
	if err != nil {
		return nil, err
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: consumerGroup,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	return &Bus{Publisher: publisher, Subscriber: subscriber}, nil
}
