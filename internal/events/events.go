package events

import "strconv"

const (
	CourseExchange = "course-exchange"
	UsersExchange  = "users-exchange"

	CourseLevelPassedKey    = "course-level.passed"
	CertificateIssuedKey    = "course-certificate.issued"
	CertificateRequestedKey = "course-certificate.requested"

	CoursesQueue            = "courses-queue"
	CourseCertificatesQueue = "course-certificates-queue"
	CertificateRequestQueue = "certificate-request-queue"

	HeaderLevelID  = "levelId"
	HeaderCourseID = "courseId"
)

// CourseLevelPassed is published by the courses service when a learner
// passes a level. Progress is the level's delta, not a running total.
type CourseLevelPassed struct {
	UserID     string `json:"userId"`
	CourseID   int64  `json:"courseId"`
	LevelID    int64  `json:"levelId"`
	Progress   int    `json:"progress"`
	CourseName string `json:"courseName"`
}

// CertificateRequested asks the courses service to certify a course.
type CertificateRequested struct {
	UserID   string `json:"userId"`
	CourseID int64  `json:"courseId"`
}

type CourseSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CertificateIssued announces a new certificate for the requesting learner.
type CertificateIssued struct {
	CertificateID int64         `json:"id"`
	Name          string        `json:"name"`
	UserID        string        `json:"userId"`
	Course        CourseSummary `json:"course"`
	ReferenceURL  string        `json:"referenceUrl"`
}

// LevelHeaders returns the transport headers for a level event.
func LevelHeaders(levelID int64) map[string]string {
	return map[string]string{HeaderLevelID: strconv.FormatInt(levelID, 10)}
}

// CourseHeaders returns the transport headers for a course event.
func CourseHeaders(courseID int64) map[string]string {
	return map[string]string{HeaderCourseID: strconv.FormatInt(courseID, 10)}
}
