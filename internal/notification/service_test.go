package notification_test

import (
	"context"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/account"
	notificationDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/notification"
	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/notification"
	"github.com/frahmantamala/training-identity/internal/notification/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)
	Expect(db.AutoMigrate(&notificationDatamodel.Notification{})).To(Succeed())
	return db
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		now       time.Time
		publisher *recordingPublisher
		service   *notification.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		publisher = &recordingPublisher{}
		service = notification.NewService(postgres.NewNotificationRepository(openDB()), publisher, discardLogger()).
			WithClock(func() time.Time { return now })
	})

	send := func(recipient string, kind account.Kind, title string) *notification.Notification {
		n, err := service.Send(ctx, notification.Input{
			RecipientID:    recipient,
			RecipientModel: kind,
			Type:           notification.TypeCustom,
			Title:          title,
			Message:        title + " body",
		})
		Expect(err).NotTo(HaveOccurred())
		now = now.Add(time.Minute)
		return n
	}

	It("stores the notification and publishes a created event", func() {
		n := send("emp-1", account.KindEmployee, "Hello")
		Expect(n.ID).NotTo(BeEmpty())
		Expect(n.IsRead).To(BeFalse())

		evts := publisher.all()
		Expect(evts).To(HaveLen(1))
		created, ok := evts[0].(*events.NotificationCreatedEvent)
		Expect(ok).To(BeTrue())
		Expect(created.NotificationID).To(Equal(n.ID))
		Expect(created.RecipientModel).To(Equal("User"))
	})

	It("rejects an unknown type", func() {
		_, err := service.Send(ctx, notification.Input{RecipientID: "emp-1", Type: "bogus", Title: "x"})
		appErr, ok := errors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(errors.ErrCodeValidationFailed))
		Expect(publisher.all()).To(BeEmpty())
	})

	It("lists only the caller's unread notifications, newest first", func() {
		send("emp-1", account.KindEmployee, "first")
		send("emp-2", account.KindEmployee, "someone else")
		send("emp-1", account.KindCompany, "same id other model")
		send("emp-1", account.KindEmployee, "second")
		third := send("emp-1", account.KindEmployee, "third")

		page, err := service.ListUnread(ctx, "emp-1", account.KindEmployee, 1, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Total).To(BeEquivalentTo(3))
		Expect(page.TotalPages).To(Equal(2))
		Expect(page.Notifications).To(HaveLen(2))
		Expect(page.Notifications[0].ID).To(Equal(third.ID))
		Expect(page.Notifications[1].Title).To(Equal("second"))

		page, err = service.ListUnread(ctx, "emp-1", account.KindEmployee, 2, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Notifications).To(HaveLen(1))
		Expect(page.Notifications[0].Title).To(Equal("first"))
	})

	It("marks one notification read for its owner only", func() {
		n := send("emp-1", account.KindEmployee, "Hello")

		_, err := service.MarkRead(ctx, n.ID, "emp-2")
		Expect(err).To(MatchError(errors.ErrNotificationNotFound))

		read, err := service.MarkRead(ctx, n.ID, "emp-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(read.IsRead).To(BeTrue())

		page, err := service.ListUnread(ctx, "emp-1", account.KindEmployee, 1, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Total).To(BeZero())
	})

	It("marks all unread notifications read and reports the count", func() {
		send("co-1", account.KindCompany, "a")
		send("co-1", account.KindCompany, "b")
		send("co-2", account.KindCompany, "c")

		count, err := service.MarkAllRead(ctx, "co-1", account.KindCompany)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeEquivalentTo(2))

		count, err = service.MarkAllRead(ctx, "co-1", account.KindCompany)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})

	It("deletes notifications past the retention window", func() {
		send("emp-1", account.KindEmployee, "old")
		now = now.Add(31 * 24 * time.Hour)
		send("emp-1", account.KindEmployee, "fresh")

		deleted, err := service.Cleanup(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeEquivalentTo(1))

		page, err := service.ListUnread(ctx, "emp-1", account.KindEmployee, 1, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Notifications).To(HaveLen(1))
		Expect(page.Notifications[0].Title).To(Equal("fresh"))
	})

	It("runs the cleanup loop until cancelled", func() {
		send("co-1", account.KindCompany, "old")
		now = now.Add(31 * 24 * time.Hour)

		loopCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			service.RunCleanup(loopCtx, time.Hour, 0)
		}()

		Eventually(func() int64 {
			page, err := service.ListUnread(ctx, "co-1", account.KindCompany, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			return page.Total
		}).Should(BeZero())

		cancel()
		Eventually(done).Should(BeClosed())
	})
})
