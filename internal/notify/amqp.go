package notify

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/campusfix/dispatch/internal/models"
)

// AMQPNotifier publishes envelopes to a topic exchange; routing keys are
// notify.<channel>.<kind>.
type AMQPNotifier struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	exchange     string
	managerEmail string
	logger       zerolog.Logger
}

func NewAMQPNotifier(url, exchange, managerEmail string, logger zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPNotifier{conn: conn, channel: ch, exchange: exchange, managerEmail: managerEmail, logger: logger}, nil
}

func (a *AMQPNotifier) NotifyTechnician(ctx context.Context, tech models.Technician, msg TechnicianMessage) error {
	return a.publish(ctx, technicianEnvelope(tech, msg))
}

func (a *AMQPNotifier) NotifyManager(ctx context.Context, msg ManagerMessage) error {
	return a.publish(ctx, managerEnvelope(a.managerEmail, msg))
}

func (a *AMQPNotifier) NotifyReporter(ctx context.Context, report models.Report, status models.ReportStatus, details string) error {
	return a.publish(ctx, reporterEnvelope(report, status, details))
}

func RoutingKey(env Envelope) string {
	return "notify." + env.Channel + "." + env.Kind
}

func (a *AMQPNotifier) publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return a.channel.PublishWithContext(ctx, a.exchange, RoutingKey(env), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (a *AMQPNotifier) Close() error {
	if a == nil {
		return nil
	}
	if err := a.channel.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close amqp channel")
	}
	return a.conn.Close()
}
