package listener

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	achievementdomain "github.com/smallbiznis/academy/internal/achievement/domain"
	achievementrepository "github.com/smallbiznis/academy/internal/achievement/repository"
	achievementservice "github.com/smallbiznis/academy/internal/achievement/service"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	certificaterepository "github.com/smallbiznis/academy/internal/certificate/repository"
	certificateservice "github.com/smallbiznis/academy/internal/certificate/service"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	coursedomain "github.com/smallbiznis/academy/internal/course/domain"
	courserepository "github.com/smallbiznis/academy/internal/course/repository"
	courseservice "github.com/smallbiznis/academy/internal/course/service"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/messaging"
	progressdomain "github.com/smallbiznis/academy/internal/progress/domain"
	progressrepository "github.com/smallbiznis/academy/internal/progress/repository"
	progressservice "github.com/smallbiznis/academy/internal/progress/service"
	"github.com/smallbiznis/academy/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, payload, headers)
	return args.Error(0)
}

type saga struct {
	db           *gorm.DB
	users        *Users
	courses      *Courses
	courseSvc    coursedomain.Service
	achievements achievementdomain.Service
	usersPub     *testutil.Publisher
	coursesPub   *testutil.Publisher
}

func setupSaga(t *testing.T) saga {
	t.Helper()

	db := testutil.OpenSQLite(t,
		&progressdomain.Progress{},
		&achievementdomain.Achievement{},
		&coursedomain.Course{},
		&coursedomain.Level{},
		&certificatedomain.Certificate{},
	)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	usersPub := &testutil.Publisher{}
	coursesPub := &testutil.Publisher{}

	progress := progressservice.New(progressservice.Params{DB: db, Log: log, GenID: node, Repo: progressrepository.Provide(), Clock: clk})
	achievements := achievementservice.New(achievementservice.Params{DB: db, Log: log, GenID: node, Repo: achievementrepository.Provide(), Clock: clk})
	courseSvc := courseservice.New(courseservice.Params{DB: db, Log: log, GenID: node, Repo: courserepository.Provide(), Clock: clk, Publisher: coursesPub})
	certificates := certificateservice.New(certificateservice.Params{
		DB:        db,
		Log:       log,
		Config:    config.Config{CertificateBaseURL: "https://academy.local/certificates"},
		GenID:     node,
		Repo:      certificaterepository.Provide(),
		CourseSvc: courseSvc,
		Clock:     clk,
		Publisher: coursesPub,
	})

	return saga{
		db:           db,
		users:        NewUsers(UsersParams{Log: log, Progress: progress, Achievements: achievements, Publisher: usersPub}),
		courses:      NewCourses(log, certificates),
		courseSvc:    courseSvc,
		achievements: achievements,
		usersPub:     usersPub,
		coursesPub:   coursesPub,
	}
}

func deliver(t *testing.T, h messaging.Handler, payload any) messaging.Result {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return h(context.Background(), messaging.Inbound{Body: body})
}

func levelPassed(user string, course int64, delta int) events.CourseLevelPassed {
	return events.CourseLevelPassed{UserID: user, CourseID: course, LevelID: 1, Progress: delta, CourseName: "Go Basics"}
}

func TestLevelPassedRequestsCertificateAtCompletion(t *testing.T) {
	s := setupSaga(t)
	h := messaging.JSON(s.users.LevelPassed)

	for i := 0; i < 4; i++ {
		res := deliver(t, h, levelPassed("u1", 1, 25))
		require.Equal(t, messaging.ActionAck, res.Action)

		requested := s.usersPub.ByKey(events.CertificateRequestedKey)
		if i < 3 {
			assert.Empty(t, requested, "after event %d", i+1)
		}
	}

	requested := s.usersPub.ByKey(events.CertificateRequestedKey)
	require.Len(t, requested, 1)
	assert.Equal(t, events.CertificateRequested{UserID: "u1", CourseID: 1}, requested[0].Payload)
	assert.Equal(t, "1", requested[0].Headers[events.HeaderCourseID])
}

func TestLevelPassedOvershootStillRequests(t *testing.T) {
	s := setupSaga(t)

	res := deliver(t, messaging.JSON(s.users.LevelPassed), levelPassed("u1", 1, 150))
	require.Equal(t, messaging.ActionAck, res.Action)
	assert.Len(t, s.usersPub.ByKey(events.CertificateRequestedKey), 1)

	var progress int
	require.NoError(t, s.db.Raw(`SELECT progress FROM progress WHERE user_id = ?`, "u1").Scan(&progress).Error)
	assert.Equal(t, 150, progress)
}

func TestLevelPassedInvalidPayloadIsDeadLettered(t *testing.T) {
	s := setupSaga(t)
	h := messaging.JSON(s.users.LevelPassed)

	res := h(context.Background(), messaging.Inbound{Body: []byte(`{"userId":`)})
	assert.Equal(t, messaging.ActionReject, res.Action)

	res = deliver(t, h, levelPassed("", 1, 10))
	assert.Equal(t, messaging.ActionReject, res.Action)
	assert.ErrorIs(t, res.Err, progressdomain.ErrInvalidUser)
}

func TestLevelPassedPublishFailureIsRetried(t *testing.T) {
	s := setupSaga(t)
	s.usersPub.Err = assert.AnError

	res := deliver(t, messaging.JSON(s.users.LevelPassed), levelPassed("u1", 1, 100))
	assert.Equal(t, messaging.ActionRetry, res.Action)
}

func TestLevelPassedPublishesOnlyOnceCompleted(t *testing.T) {
	s := setupSaga(t)
	pub := &mockPublisher{}
	users := NewUsers(UsersParams{Log: zap.NewNop(), Progress: s.users.progress, Achievements: s.achievements, Publisher: pub})
	pub.On("Publish",
		mock.Anything,
		events.CertificateRequestedKey,
		events.CertificateRequested{UserID: "u1", CourseID: 1},
		map[string]string{events.HeaderCourseID: "1"},
	).Return(nil).Once()

	h := messaging.JSON(users.LevelPassed)
	for _, delta := range []int{40, 40} {
		assert.Equal(t, messaging.ActionAck, deliver(t, h, levelPassed("u1", 1, delta)).Action)
	}
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	assert.Equal(t, messaging.ActionAck, deliver(t, h, levelPassed("u1", 1, 20)).Action)
	pub.AssertExpectations(t)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestCertificateIssuedRecordsEveryDelivery(t *testing.T) {
	s := setupSaga(t)
	h := messaging.JSON(s.users.CertificateIssued)
	evt := events.CertificateIssued{
		CertificateID: 77,
		Name:          "Go Basics Certificate",
		UserID:        "u1",
		Course:        events.CourseSummary{ID: 1, Name: "Go Basics"},
		ReferenceURL:  "https://academy.local/certificates/go-basics-77",
	}

	require.Equal(t, messaging.ActionAck, deliver(t, h, evt).Action)
	require.Equal(t, messaging.ActionAck, deliver(t, h, evt).Action)

	list, err := s.achievements.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCertificateRequestedMissingCourseIsRetried(t *testing.T) {
	s := setupSaga(t)

	res := deliver(t, messaging.JSON(s.courses.CertificateRequested), events.CertificateRequested{UserID: "u1", CourseID: 999})
	assert.Equal(t, messaging.ActionRetry, res.Action)
	assert.ErrorIs(t, res.Err, coursedomain.ErrCourseNotFound)
	assert.Empty(t, s.coursesPub.Messages())
}

// Runs the whole choreography in process: each published payload is fed to
// the handler bound to its routing key.
func TestSagaIssuesOneCertificateAndAchievement(t *testing.T) {
	s := setupSaga(t)
	ctx := context.Background()

	course, err := s.courseSvc.CreateCourse(ctx, coursedomain.CreateCourseRequest{Name: "Go Basics"})
	require.NoError(t, err)
	var levelIDs []string
	for i := 0; i < 4; i++ {
		level, err := s.courseSvc.CreateLevel(ctx, coursedomain.CreateLevelRequest{CourseID: course.ID, Name: "L" + strconv.Itoa(i), Progress: 25})
		require.NoError(t, err)
		levelIDs = append(levelIDs, level.ID)
	}

	for _, id := range levelIDs {
		_, err := s.courseSvc.PassLevel(ctx, coursedomain.PassLevelRequest{CourseID: course.ID, LevelID: id, UserID: "u1"})
		require.NoError(t, err)
	}

	passed := s.coursesPub.ByKey(events.CourseLevelPassedKey)
	require.Len(t, passed, 4)
	for _, m := range passed {
		require.Equal(t, messaging.ActionAck, deliver(t, messaging.JSON(s.users.LevelPassed), m.Payload).Action)
	}

	requested := s.usersPub.ByKey(events.CertificateRequestedKey)
	require.Len(t, requested, 1)
	require.Equal(t, messaging.ActionAck, deliver(t, messaging.JSON(s.courses.CertificateRequested), requested[0].Payload).Action)
	require.Equal(t, messaging.ActionAck, deliver(t, messaging.JSON(s.courses.CertificateRequested), requested[0].Payload).Action)

	issued := s.coursesPub.ByKey(events.CertificateIssuedKey)
	require.Len(t, issued, 1)
	require.Equal(t, messaging.ActionAck, deliver(t, messaging.JSON(s.users.CertificateIssued), issued[0].Payload).Action)

	achievements, err := s.achievements.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, achievements, 1)

	courseID, err := snowflake.ParseString(course.ID)
	require.NoError(t, err)
	assert.Equal(t, courseID.String(), achievements[0].CourseID)
	assert.Equal(t, strconv.FormatInt(issued[0].Payload.(events.CertificateIssued).CertificateID, 10), achievements[0].CertificateID)
}
