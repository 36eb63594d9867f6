package config

import (
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// InitAMQP dials AMQP_URI and declares the activity topic exchange.
func InitAMQP(s *Settings) (*amqp.Connection, *amqp.Channel, error) {
	wrapMsg := "unable to initialize the AMQP connection"

	conn, err := amqp.Dial(s.AMQPURI)
	if err != nil {
		return nil, nil, errors.Wrap(err, wrapMsg)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, wrapMsg)
	}

	if err := ch.ExchangeDeclare(s.AMQPExchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, wrapMsg)
	}

	return conn, ch, nil
}
