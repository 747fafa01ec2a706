package notification_test

import (
	"context"
	"encoding/json"
	stdErrors "errors"

	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/notification"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	amqp "github.com/rabbitmq/amqp091-go"
)

type recordingSink struct {
	inputs []notification.Input
}

func (s *recordingSink) Send(ctx context.Context, in notification.Input) (*notification.Notification, error) {
	s.inputs = append(s.inputs, in)
	return &notification.Notification{ID: "n-1"}, nil
}

var _ = Describe("Subscriber", func() {
	var (
		sink       *recordingSink
		subscriber *notification.Subscriber
	)

	BeforeEach(func() {
		sink = &recordingSink{}
		subscriber = notification.NewSubscriber(sink)
	})

	DescribeTable("maps account events to notification types",
		func(eventType string, want notification.Type) {
			evt := events.NewAccountEvent(eventType, "co-1", string(account.KindCompany), "Acme Ltd")
			Expect(subscriber.Handle(context.Background(), evt)).To(Succeed())
			Expect(sink.inputs).To(HaveLen(1))
			Expect(sink.inputs[0].Type).To(Equal(want))
			Expect(sink.inputs[0].RecipientID).To(Equal("co-1"))
			Expect(sink.inputs[0].RecipientModel).To(Equal(account.KindCompany))
		},
		Entry("registered", events.EventTypeAccountRegistered, notification.TypeRegistration),
		Entry("logged in", events.EventTypeAccountLoggedIn, notification.TypeLogin),
		Entry("otp verified", events.EventTypeAccountOTPVerified, notification.TypeOTPVerified),
		Entry("password reset", events.EventTypeAccountPasswordReset, notification.TypePasswordReset),
	)

	It("registers a handler for each account event", func() {
		bus := events.NewEventBus(discardLogger())
		subscriber.Register(bus)
		Expect(bus.HandlerCount(events.EventTypeAccountRegistered)).To(Equal(1))
		Expect(bus.HandlerCount(events.EventTypeAccountPasswordReset)).To(Equal(1))
	})

	It("rejects a foreign payload", func() {
		err := subscriber.Handle(context.Background(), events.BaseEvent{Type: events.EventTypeAccountLoggedIn})
		Expect(err).To(HaveOccurred())
		Expect(sink.inputs).To(BeEmpty())
	})
})

var _ = Describe("AMQPPublisher", func() {
	var (
		channel   *fakeChannel
		publisher *notification.AMQPPublisher
	)

	BeforeEach(func() {
		channel = &fakeChannel{}
		var err error
		publisher, err = notification.NewAMQPPublisher(channel, "training.notifications", "notification", discardLogger())
		Expect(err).NotTo(HaveOccurred())
	})

	It("declares a topic exchange", func() {
		Expect(channel.declared).To(ConsistOf("training.notifications:topic"))
	})

	It("publishes a persistent JSON message keyed by recipient", func() {
		evt := events.NewNotificationCreatedEvent("n-1", "emp-1", "User", "login", "New login", "hi")
		Expect(publisher.Handle(context.Background(), evt)).To(Succeed())

		Expect(channel.published).To(HaveLen(1))
		p := channel.published[0]
		Expect(p.exchange).To(Equal("training.notifications"))
		Expect(p.key).To(Equal("notification.User.emp-1"))
		Expect(p.msg.ContentType).To(Equal("application/json"))
		Expect(p.msg.DeliveryMode).To(Equal(amqp.Persistent))

		var body map[string]interface{}
		Expect(json.Unmarshal(p.msg.Body, &body)).To(Succeed())
		Expect(body["notification_id"]).To(Equal("n-1"))
		Expect(body["title"]).To(Equal("New login"))
	})

	It("returns the broker error", func() {
		channel.publishErr = stdErrors.New("channel closed")
		evt := events.NewNotificationCreatedEvent("n-1", "emp-1", "User", "login", "New login", "hi")
		Expect(publisher.Handle(context.Background(), evt)).To(MatchError("channel closed"))
	})

	It("closes the channel", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(channel.closed).To(BeTrue())
	})
})
