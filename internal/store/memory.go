package store

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vedhaiygl/smart-attendance-api/internal/directory"
	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
)

// courseState is the store-internal course shape. Enrollment is a set of
// student IDs resolved against the directory at read time, so course data can
// never diverge from the canonical roster.
type courseState struct {
	ID          string
	Name        string
	Code        string
	BannerURL   string
	StudentIDs  []string
	Sessions    []models.Session
	Records     []models.AttendanceRecord
	LiveClasses []models.LiveClass
}

// snapshot is one immutable generation of the whole state. Mutations build a
// fresh snapshot from a deep copy and swap the pointer, so readers holding an
// older generation never observe partial writes.
type snapshot struct {
	courses []courseState
}

// MemoryStore is the copy-on-write in-memory Store. A single mutex serializes
// writers; readers load the current snapshot pointer without blocking them.
type MemoryStore struct {
	clock     token.Clock
	validity  time.Duration
	directory directory.Directory

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(clock token.Clock, qrValidity time.Duration, dir directory.Directory) *MemoryStore {
	if clock == nil {
		clock = token.SystemClock{}
	}
	if qrValidity <= 0 {
		qrValidity = 60 * time.Second
	}
	s := &MemoryStore{clock: clock, validity: qrValidity, directory: dir}
	s.snap.Store(&snapshot{})
	return s
}

// Courses returns the full read model: every course with sessions, records
// and live classes, students resolved against the directory.
func (s *MemoryStore) Courses(ctx context.Context) ([]models.Course, error) {
	snap := s.snap.Load()
	out := make([]models.Course, 0, len(snap.courses))
	for i := range snap.courses {
		out = append(out, s.view(&snap.courses[i]))
	}
	return out, nil
}

// CourseByID returns one course from the current snapshot.
func (s *MemoryStore) CourseByID(ctx context.Context, courseID string) (*models.Course, error) {
	snap := s.snap.Load()
	for i := range snap.courses {
		if snap.courses[i].ID == courseID {
			course := s.view(&snap.courses[i])
			return &course, nil
		}
	}
	return nil, appErrors.ErrCourseNotFound
}

// SessionByID returns a session copy from the current snapshot.
func (s *MemoryStore) SessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	snap := s.snap.Load()
	for i := range snap.courses {
		if sess := findSession(&snap.courses[i], sessionID); sess != nil {
			copied := *sess
			return &copied, nil
		}
	}
	return nil, appErrors.ErrSessionNotFound
}

// ShortCodeInUse reports whether any session in any course answers to the
// normalized short code.
func (s *MemoryStore) ShortCodeInUse(ctx context.Context, normalized string) (bool, error) {
	if normalized == "" {
		return false, nil
	}
	snap := s.snap.Load()
	for i := range snap.courses {
		for j := range snap.courses[i].Sessions {
			sc := snap.courses[i].Sessions[j].ShortCode
			if sc != "" && token.Normalize(sc) == normalized {
				return true, nil
			}
		}
	}
	return false, nil
}

// CreateCourse appends an empty course.
func (s *MemoryStore) CreateCourse(ctx context.Context, name, code string) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	next.courses = append(next.courses, courseState{
		ID:   uuid.NewString(),
		Name: name,
		Code: code,
	})
	s.snap.Store(next)
	course := s.view(&next.courses[len(next.courses)-1])
	return &course, nil
}

// DeleteCourse removes the course and everything it owns (sessions, records,
// live classes cascade with it).
func (s *MemoryStore) DeleteCourse(ctx context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return appErrors.ErrCourseNotFound
	}
	next.courses = append(next.courses[:idx], next.courses[idx+1:]...)
	s.snap.Store(next)
	return nil
}

// UpdateCourseBanner sets the cosmetic banner URL.
func (s *MemoryStore) UpdateCourseBanner(ctx context.Context, courseID, bannerURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return appErrors.ErrCourseNotFound
	}
	next.courses[idx].BannerURL = bannerURL
	s.snap.Store(next)
	return nil
}

// EnrollStudent is idempotent: a second call with the same ids leaves the
// state untouched. New enrollments backfill one Absent record per existing
// session in the course.
func (s *MemoryStore) EnrollStudent(ctx context.Context, courseID, studentID string) error {
	if s.directory != nil {
		if _, ok := s.directory.Find(studentID); !ok {
			return appErrors.ErrStudentNotFound
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return appErrors.ErrCourseNotFound
	}
	course := &next.courses[idx]
	for _, id := range course.StudentIDs {
		if id == studentID {
			return nil
		}
	}
	course.StudentIDs = append(course.StudentIDs, studentID)
	for i := range course.Sessions {
		course.Records = append(course.Records, models.AttendanceRecord{
			StudentID: studentID,
			SessionID: course.Sessions[i].ID,
			Status:    models.AttendanceStatusAbsent,
		})
	}
	s.snap.Store(next)
	return nil
}

// CreateSession opens a session with one Absent record per currently
// enrolled student.
func (s *MemoryStore) CreateSession(ctx context.Context, courseID string, params CreateSessionParams) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return nil, appErrors.ErrCourseNotFound
	}
	course := &next.courses[idx]

	sess := models.Session{
		ID:            uuid.NewString(),
		CourseID:      courseID,
		Date:          s.clock.Now(),
		Type:          params.Type,
		Limit:         copyIntPtr(params.Limit),
		QRCodeValue:   params.QRToken,
		ShortCode:     params.ShortCode,
		LivenessCheck: params.LivenessCheck,
	}
	course.Sessions = append(course.Sessions, sess)
	for _, studentID := range course.StudentIDs {
		course.Records = append(course.Records, models.AttendanceRecord{
			StudentID: studentID,
			SessionID: sess.ID,
			Status:    models.AttendanceStatusAbsent,
		})
	}
	s.snap.Store(next)
	copied := sess
	return &copied, nil
}

// DeleteSession removes the session and all its records. No undo.
func (s *MemoryStore) DeleteSession(ctx context.Context, courseID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return appErrors.ErrCourseNotFound
	}
	course := &next.courses[idx]

	pos := -1
	for i := range course.Sessions {
		if course.Sessions[i].ID == sessionID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return appErrors.ErrSessionNotFound
	}
	course.Sessions = append(course.Sessions[:pos], course.Sessions[pos+1:]...)
	kept := course.Records[:0]
	for _, r := range course.Records {
		if r.SessionID != sessionID {
			kept = append(kept, r)
		}
	}
	course.Records = kept
	s.snap.Store(next)
	return nil
}

// RotateQRToken installs a fresh token unless the capacity sentinel is in
// place or the session is gone.
func (s *MemoryStore) RotateQRToken(ctx context.Context, sessionID, tokenValue string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	for i := range next.courses {
		if sess := findSession(&next.courses[i], sessionID); sess != nil {
			if sess.QRCodeValue == models.QRLimitReached {
				return false, nil
			}
			sess.QRCodeValue = tokenValue
			s.snap.Store(next)
			return true, nil
		}
	}
	return false, nil
}

// RegenerateQRCode overrides whatever token state the session is in,
// including the sentinel. Scans work again until the count re-reaches the
// limit.
func (s *MemoryStore) RegenerateQRCode(ctx context.Context, sessionID, tokenValue string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	for i := range next.courses {
		if sess := findSession(&next.courses[i], sessionID); sess != nil {
			sess.QRCodeValue = tokenValue
			sess.PreviousQRCodeValue = ""
			s.snap.Store(next)
			copied := *sess
			return &copied, nil
		}
	}
	return nil, appErrors.ErrSessionNotFound
}

// MarkAttendance runs the ordered validation against the current state and,
// on success, applies the Absent -> Present transition atomically.
func (s *MemoryStore) MarkAttendance(ctx context.Context, req MarkRequest) (*models.MarkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	normalized := token.Normalize(req.Code)

	var (
		course *courseState
		sess   *models.Session
	)
	for i := range next.courses {
		c := &next.courses[i]
		for j := range c.Sessions {
			if MatchesCode(&c.Sessions[j], req.Code, normalized) {
				course = c
				sess = &c.Sessions[j]
				break
			}
		}
		if sess != nil {
			break
		}
	}

	in := DecisionInput{
		Code:           req.Code,
		NowMillis:      s.clock.Now().UnixMilli(),
		ValidityMillis: s.validity.Milliseconds(),
		Session:        sess,
		HasSelfie:      len(req.SelfieData) > 0,
	}
	var record *models.AttendanceRecord
	if sess != nil {
		in.Enrolled = containsID(course.StudentIDs, req.StudentID)
		for i := range course.Records {
			r := &course.Records[i]
			if r.StudentID == req.StudentID && r.SessionID == sess.ID {
				record = r
				break
			}
		}
		in.Record = record
	}

	outcome := Decide(in)
	result := &models.MarkResult{Outcome: outcome}
	if sess != nil {
		result.CourseID = course.ID
		copied := *sess
		result.Session = &copied
	}
	if outcome != models.MarkSuccess {
		return result, nil
	}

	if record == nil {
		// Enrollment backfill guarantees a record per (student, session);
		// reaching this point means the store is corrupt.
		result.Outcome = models.MarkError
		return result, appErrors.Clone(appErrors.ErrInternal, "attendance record missing for enrolled student")
	}

	record.Status = models.AttendanceStatusPresent
	if len(req.SelfieData) > 0 {
		record.SelfieData = append([]byte(nil), req.SelfieData...)
		if req.SelfieRef != nil {
			record.SelfieRef = copyStrPtr(req.SelfieRef)
		} else {
			ref := SelfieKey(sess.ID, req.StudentID)
			record.SelfieRef = &ref
		}
	}
	sess.ScannedCount++
	if sess.AtCapacity() {
		sess.PreviousQRCodeValue = sess.QRCodeValue
		sess.QRCodeValue = models.QRLimitReached
	}
	s.snap.Store(next)

	sessCopy := *sess
	recCopy := *record
	result.Session = &sessCopy
	result.Record = &recCopy
	return result, nil
}

// ToggleAttendance is the unconditional faculty override: it flips one
// record and adjusts the scanned count by plus or minus one, clamped at zero.
// None of the scan-path validation applies.
func (s *MemoryStore) ToggleAttendance(ctx context.Context, courseID, sessionID, studentID string) (*models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return nil, appErrors.ErrCourseNotFound
	}
	course := &next.courses[idx]
	sess := findSession(course, sessionID)
	if sess == nil {
		return nil, appErrors.ErrSessionNotFound
	}

	for i := range course.Records {
		r := &course.Records[i]
		if r.StudentID != studentID || r.SessionID != sessionID {
			continue
		}
		r.Status = r.Status.Toggle()
		if r.Status == models.AttendanceStatusPresent {
			sess.ScannedCount++
		} else if sess.ScannedCount > 0 {
			sess.ScannedCount--
		}
		s.snap.Store(next)
		copied := *r
		return &copied, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
}

// StartLiveClass ends every live class the course still has running, then
// opens a new one. At most one live class per course is live at any time.
func (s *MemoryStore) StartLiveClass(ctx context.Context, courseID string) (*models.LiveClass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return nil, appErrors.ErrCourseNotFound
	}
	course := &next.courses[idx]
	now := s.clock.Now()

	for i := range course.LiveClasses {
		if course.LiveClasses[i].Status == models.LiveClassStatusLive {
			endLiveClass(&course.LiveClasses[i], now)
		}
	}

	lc := models.LiveClass{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Status:    models.LiveClassStatusLive,
		StartTime: now,
		Attendees: []models.LiveClassAttendee{},
	}
	course.LiveClasses = append(course.LiveClasses, lc)
	s.snap.Store(next)
	copied := cloneLiveClass(&lc)
	return &copied, nil
}

// EndLiveClass transitions live -> ended, finalizing durations for every
// attendee still lacking a leave time.
func (s *MemoryStore) EndLiveClass(ctx context.Context, courseID, liveClassID string) (*models.LiveClass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return nil, appErrors.ErrCourseNotFound
	}
	course := &next.courses[idx]
	lc := findLiveClass(course, liveClassID)
	if lc == nil {
		return nil, appErrors.ErrLiveClassNotFound
	}
	if lc.Status == models.LiveClassStatusEnded {
		return nil, appErrors.ErrLiveClassEnded
	}
	endLiveClass(lc, s.clock.Now())
	s.snap.Store(next)
	copied := cloneLiveClass(lc)
	return &copied, nil
}

// JoinLiveClass adds an attendee entry, a no-op while the student already has
// an open one. Joining an ended class fails.
func (s *MemoryStore) JoinLiveClass(ctx context.Context, courseID, liveClassID, studentID string) (*models.LiveClass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return nil, appErrors.ErrCourseNotFound
	}
	course := &next.courses[idx]
	lc := findLiveClass(course, liveClassID)
	if lc == nil {
		return nil, appErrors.ErrLiveClassNotFound
	}
	if lc.Status != models.LiveClassStatusLive {
		return nil, appErrors.ErrLiveClassEnded
	}

	for i := range lc.Attendees {
		if lc.Attendees[i].StudentID == studentID && lc.Attendees[i].Open() {
			copied := cloneLiveClass(lc)
			return &copied, nil
		}
	}
	lc.Attendees = append(lc.Attendees, models.LiveClassAttendee{
		StudentID: studentID,
		JoinTime:  s.clock.Now(),
	})
	s.snap.Store(next)
	copied := cloneLiveClass(lc)
	return &copied, nil
}

// LeaveLiveClass closes the student's open attendee entry and computes the
// attended duration.
func (s *MemoryStore) LeaveLiveClass(ctx context.Context, courseID, liveClassID, studentID string) (*models.LiveClassAttendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	idx := findCourse(next, courseID)
	if idx < 0 {
		return nil, appErrors.ErrCourseNotFound
	}
	course := &next.courses[idx]
	lc := findLiveClass(course, liveClassID)
	if lc == nil {
		return nil, appErrors.ErrLiveClassNotFound
	}

	for i := range lc.Attendees {
		a := &lc.Attendees[i]
		if a.StudentID == studentID && a.Open() {
			closeAttendee(a, s.clock.Now())
			s.snap.Store(next)
			copied := *a
			return &copied, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no open live class entry for student")
}

// Reset clears all state.
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Store(&snapshot{})
	return nil
}

func (s *MemoryStore) view(c *courseState) models.Course {
	students := make([]models.Student, 0, len(c.StudentIDs))
	for _, id := range c.StudentIDs {
		if s.directory != nil {
			if stu, ok := s.directory.Find(id); ok {
				students = append(students, stu)
				continue
			}
		}
		students = append(students, models.Student{ID: id})
	}
	course := models.Course{
		ID:                c.ID,
		Name:              c.Name,
		Code:              c.Code,
		BannerURL:         c.BannerURL,
		Students:          students,
		Sessions:          append([]models.Session(nil), c.Sessions...),
		AttendanceRecords: append([]models.AttendanceRecord(nil), c.Records...),
		LiveClasses:       make([]models.LiveClass, 0, len(c.LiveClasses)),
	}
	for i := range c.LiveClasses {
		course.LiveClasses = append(course.LiveClasses, cloneLiveClass(&c.LiveClasses[i]))
	}
	return course
}

// clone deep-copies the current snapshot for mutation. Callers hold s.mu.
func (s *MemoryStore) clone() *snapshot {
	cur := s.snap.Load()
	next := &snapshot{courses: make([]courseState, len(cur.courses))}
	for i := range cur.courses {
		c := &cur.courses[i]
		cp := courseState{
			ID:         c.ID,
			Name:       c.Name,
			Code:       c.Code,
			BannerURL:  c.BannerURL,
			StudentIDs: append([]string(nil), c.StudentIDs...),
			Sessions:   make([]models.Session, len(c.Sessions)),
			Records:    make([]models.AttendanceRecord, len(c.Records)),
		}
		for j := range c.Sessions {
			sess := c.Sessions[j]
			sess.Limit = copyIntPtr(sess.Limit)
			cp.Sessions[j] = sess
		}
		for j := range c.Records {
			r := c.Records[j]
			r.SelfieData = append([]byte(nil), r.SelfieData...)
			r.SelfieRef = copyStrPtr(r.SelfieRef)
			cp.Records[j] = r
		}
		cp.LiveClasses = make([]models.LiveClass, 0, len(c.LiveClasses))
		for j := range c.LiveClasses {
			cp.LiveClasses = append(cp.LiveClasses, cloneLiveClass(&c.LiveClasses[j]))
		}
		next.courses[i] = cp
	}
	return next
}

func findCourse(snap *snapshot, courseID string) int {
	for i := range snap.courses {
		if snap.courses[i].ID == courseID {
			return i
		}
	}
	return -1
}

func findSession(c *courseState, sessionID string) *models.Session {
	for i := range c.Sessions {
		if c.Sessions[i].ID == sessionID {
			return &c.Sessions[i]
		}
	}
	return nil
}

func findLiveClass(c *courseState, liveClassID string) *models.LiveClass {
	for i := range c.LiveClasses {
		if c.LiveClasses[i].ID == liveClassID {
			return &c.LiveClasses[i]
		}
	}
	return nil
}

func endLiveClass(lc *models.LiveClass, now time.Time) {
	lc.Status = models.LiveClassStatusEnded
	end := now
	lc.EndTime = &end
	for i := range lc.Attendees {
		if lc.Attendees[i].Open() {
			closeAttendee(&lc.Attendees[i], now)
		}
	}
}

func closeAttendee(a *models.LiveClassAttendee, now time.Time) {
	leave := now
	a.LeaveTime = &leave
	minutes := roundTwo(float64(leave.Sub(a.JoinTime).Milliseconds()) / 60000.0)
	a.DurationMinutes = &minutes
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}

func cloneLiveClass(lc *models.LiveClass) models.LiveClass {
	cp := *lc
	cp.EndTime = copyTimePtr(lc.EndTime)
	cp.Attendees = make([]models.LiveClassAttendee, len(lc.Attendees))
	for i := range lc.Attendees {
		a := lc.Attendees[i]
		a.LeaveTime = copyTimePtr(a.LeaveTime)
		a.DurationMinutes = copyFloatPtr(a.DurationMinutes)
		cp.Attendees[i] = a
	}
	return cp
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyStrPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyFloatPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
