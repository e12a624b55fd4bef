package listener

import (
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/messaging"
	"go.uber.org/fx"
)

var UsersModule = fx.Module("listener.users",
	fx.Provide(NewUsers),
	fx.Invoke(func(consumer *messaging.Consumer, u *Users) {
		consumer.Handle(events.CoursesQueue, messaging.JSON(u.LevelPassed))
		consumer.Handle(events.CourseCertificatesQueue, messaging.JSON(u.CertificateIssued))
	}),
)

var CoursesModule = fx.Module("listener.courses",
	fx.Provide(NewCourses),
	fx.Invoke(func(consumer *messaging.Consumer, c *Courses) {
		consumer.Handle(events.CertificateRequestQueue, messaging.JSON(c.CertificateRequested))
	}),
)
