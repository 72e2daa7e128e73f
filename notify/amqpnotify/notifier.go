// Package amqpnotify implements the engine's Notifier by publishing
// code-delivery events to a RabbitMQ topic exchange. A downstream
// notification service renders and sends the actual email or SMS.
package amqpnotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/rabbitmq/amqp091-go"

	"github.com/docuvault/authcore"
)

// Routing keys per challenge kind under the configured exchange.
const (
	routingKeySecondFactor = "auth.code.second_factor"
	routingKeyRecovery     = "auth.code.recovery"
)

// codeEvent is the message a delivery worker consumes. The raw code
// travels only through the broker, never into any of the engine's
// stores.
type codeEvent struct {
	UserID      string `json:"user_id"`
	Alias       string `json:"alias"`
	Destination string `json:"destination"`
	Code        string `json:"code"`
	Kind        string `json:"kind"`
}

// Notifier publishes code-delivery events. Create one per process and
// share it; the underlying channel is used serially per publish.
type Notifier struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// New connects to the broker and declares the topic exchange.
func New(amqpURL, exchange string) (*Notifier, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if exchange == "" {
		exchange = "docuvault.auth"
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &Notifier{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

// DeliverCode publishes the code event for the user's challenge.
func (n *Notifier) DeliverCode(ctx context.Context, user authcore.UserRecord, code string, kind authcore.ChallengeKind) error {
	routingKey := routingKeySecondFactor
	kindName := "second_factor"
	if kind == authcore.ChallengeRecovery {
		routingKey = routingKeyRecovery
		kindName = "recovery"
	}

	body, err := json.Marshal(codeEvent{
		UserID:      user.UserID,
		Alias:       user.Alias,
		Destination: user.Destination,
		Code:        code,
		Kind:        kindName,
	})
	if err != nil {
		return err
	}

	return n.channel.PublishWithContext(ctx,
		n.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
}

// Close releases the channel and connection.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
