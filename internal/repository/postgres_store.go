package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vedhaiygl/smart-attendance-api/internal/directory"
	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
)

// PostgresStore maps the attendance store surface onto relational rows. The
// wire semantics (limit_count -> limit, scanned_count -> scannedCount) and
// every mark outcome are identical to the in-memory store; snapshot
// consistency comes from transactions with row locks instead of copy-on-write.
type PostgresStore struct {
	db        *sqlx.DB
	clock     token.Clock
	validity  time.Duration
	directory directory.Directory
}

// NewPostgresStore constructs the Postgres-backed store.
func NewPostgresStore(db *sqlx.DB, clock token.Clock, qrValidity time.Duration, dir directory.Directory) *PostgresStore {
	if clock == nil {
		clock = token.SystemClock{}
	}
	if qrValidity <= 0 {
		qrValidity = 60 * time.Second
	}
	return &PostgresStore{db: db, clock: clock, validity: qrValidity, directory: dir}
}

type courseRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Code      string `db:"code"`
	BannerURL string `db:"banner_url"`
}

// Courses assembles the full read model.
func (s *PostgresStore) Courses(ctx context.Context) ([]models.Course, error) {
	var rows []courseRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, code, banner_url FROM courses ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := make([]models.Course, 0, len(rows))
	for _, row := range rows {
		course, err := s.assemble(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, *course)
	}
	return out, nil
}

// CourseByID returns one assembled course.
func (s *PostgresStore) CourseByID(ctx context.Context, courseID string) (*models.Course, error) {
	var row courseRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, code, banner_url FROM courses WHERE id = $1`, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find course: %w", err)
	}
	return s.assemble(ctx, row)
}

// SessionByID returns one session.
func (s *PostgresStore) SessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var sess models.Session
	err := s.db.GetContext(ctx, &sess, sessionSelect+` WHERE id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

// ShortCodeInUse checks the normalized short code against every session.
func (s *PostgresStore) ShortCodeInUse(ctx context.Context, normalized string) (bool, error) {
	if normalized == "" {
		return false, nil
	}
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM sessions WHERE short_code <> '' AND UPPER(REPLACE(short_code, '-', '')) = $1`, normalized)
	if err != nil {
		return false, fmt.Errorf("check short code: %w", err)
	}
	return count > 0, nil
}

// CreateCourse inserts an empty course.
func (s *PostgresStore) CreateCourse(ctx context.Context, name, code string) (*models.Course, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id, name, code, banner_url) VALUES ($1, $2, $3, '')`, id, name, code)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &models.Course{
		ID:                id,
		Name:              name,
		Code:              code,
		Students:          []models.Student{},
		Sessions:          []models.Session{},
		AttendanceRecords: []models.AttendanceRecord{},
		LiveClasses:       []models.LiveClass{},
	}, nil
}

// DeleteCourse cascades over everything the course owns.
func (s *PostgresStore) DeleteCourse(ctx context.Context, courseID string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		statements := []string{
			`DELETE FROM live_class_attendees WHERE live_class_id IN (SELECT id FROM live_classes WHERE course_id = $1)`,
			`DELETE FROM live_classes WHERE course_id = $1`,
			`DELETE FROM attendance_records WHERE session_id IN (SELECT id FROM sessions WHERE course_id = $1)`,
			`DELETE FROM sessions WHERE course_id = $1`,
			`DELETE FROM course_students WHERE course_id = $1`,
			`DELETE FROM courses WHERE id = $1`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, courseID); err != nil {
				return fmt.Errorf("delete course: %w", err)
			}
		}
		return nil
	})
}

// UpdateCourseBanner sets the cosmetic banner URL.
func (s *PostgresStore) UpdateCourseBanner(ctx context.Context, courseID, bannerURL string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE courses SET banner_url = $2 WHERE id = $1`, courseID, bannerURL)
	if err != nil {
		return fmt.Errorf("update banner: %w", err)
	}
	return requireAffected(res, appErrors.ErrCourseNotFound)
}

// EnrollStudent adds the enrollment link and backfills Absent records.
func (s *PostgresStore) EnrollStudent(ctx context.Context, courseID, studentID string) error {
	if s.directory != nil {
		if _, ok := s.directory.Find(studentID); !ok {
			return appErrors.ErrStudentNotFound
		}
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO course_students (course_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			courseID, studentID)
		if err != nil {
			return fmt.Errorf("enroll student: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			// Already enrolled; idempotent no-op.
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attendance_records (student_id, session_id, status)
			 SELECT $2, id, $3 FROM sessions WHERE course_id = $1`,
			courseID, studentID, models.AttendanceStatusAbsent)
		if err != nil {
			return fmt.Errorf("backfill records: %w", err)
		}
		return nil
	})
}

// CreateSession opens a session with one Absent record per enrolled student.
func (s *PostgresStore) CreateSession(ctx context.Context, courseID string, params store.CreateSessionParams) (*models.Session, error) {
	sess := &models.Session{
		ID:            uuid.NewString(),
		CourseID:      courseID,
		Date:          s.clock.Now(),
		Type:          params.Type,
		Limit:         params.Limit,
		QRCodeValue:   params.QRToken,
		ShortCode:     params.ShortCode,
		LivenessCheck: params.LivenessCheck,
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, course_id, created_at, session_type, limit_count, scanned_count, qr_code_value, previous_qr_code_value, short_code, liveness_check)
			 VALUES ($1, $2, $3, $4, $5, 0, $6, '', $7, $8)`,
			sess.ID, courseID, sess.Date, sess.Type, sess.Limit, sess.QRCodeValue, sess.ShortCode, sess.LivenessCheck)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attendance_records (student_id, session_id, status)
			 SELECT student_id, $2, $3 FROM course_students WHERE course_id = $1`,
			courseID, sess.ID, models.AttendanceStatusAbsent)
		if err != nil {
			return fmt.Errorf("initialize records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// DeleteSession removes the session with its records.
func (s *PostgresStore) DeleteSession(ctx context.Context, courseID, sessionID string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE session_id = $1`, sessionID); err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND course_id = $2`, sessionID, courseID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return requireAffected(res, appErrors.ErrSessionNotFound)
	})
}

// RotateQRToken swaps in a fresh token unless the sentinel blocks it.
func (s *PostgresStore) RotateQRToken(ctx context.Context, sessionID, tokenValue string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET qr_code_value = $2 WHERE id = $1 AND qr_code_value <> $3`,
		sessionID, tokenValue, models.QRLimitReached)
	if err != nil {
		return false, fmt.Errorf("rotate token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate token: %w", err)
	}
	return affected > 0, nil
}

// RegenerateQRCode force-sets a fresh token, clearing the sentinel bookkeeping.
func (s *PostgresStore) RegenerateQRCode(ctx context.Context, sessionID, tokenValue string) (*models.Session, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET qr_code_value = $2, previous_qr_code_value = '' WHERE id = $1`,
		sessionID, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("regenerate token: %w", err)
	}
	if err := requireAffected(res, appErrors.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return s.SessionByID(ctx, sessionID)
}

// MarkAttendance locks the matched session row and applies the same ordered
// decision as the in-memory store.
func (s *PostgresStore) MarkAttendance(ctx context.Context, req store.MarkRequest) (*models.MarkResult, error) {
	normalized := token.Normalize(req.Code)
	result := &models.MarkResult{}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var sess models.Session
		err := tx.GetContext(ctx, &sess, sessionSelect+`
			 WHERE qr_code_value = $1
			    OR (qr_code_value = $2 AND previous_qr_code_value = $1)
			    OR (short_code <> '' AND UPPER(REPLACE(short_code, '-', '')) = $3)
			 LIMIT 1 FOR UPDATE`,
			req.Code, models.QRLimitReached, normalized)
		matched := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("match session: %w", err)
		}

		in := store.DecisionInput{
			Code:           req.Code,
			NowMillis:      s.clock.Now().UnixMilli(),
			ValidityMillis: s.validity.Milliseconds(),
			HasSelfie:      len(req.SelfieData) > 0,
		}
		var record models.AttendanceRecord
		haveRecord := false
		if matched {
			in.Session = &sess
			result.CourseID = sess.CourseID
			sessCopy := sess
			result.Session = &sessCopy

			var enrolled int
			if err := tx.GetContext(ctx, &enrolled,
				`SELECT COUNT(*) FROM course_students WHERE course_id = $1 AND student_id = $2`,
				sess.CourseID, req.StudentID); err != nil {
				return fmt.Errorf("check enrollment: %w", err)
			}
			in.Enrolled = enrolled > 0

			err = tx.GetContext(ctx, &record,
				`SELECT student_id, session_id, status, selfie_ref FROM attendance_records WHERE student_id = $1 AND session_id = $2 FOR UPDATE`,
				req.StudentID, sess.ID)
			if err == nil {
				haveRecord = true
				in.Record = &record
			} else if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("find record: %w", err)
			}
		}

		outcome := store.Decide(in)
		result.Outcome = outcome
		if outcome != models.MarkSuccess {
			return nil
		}
		if !haveRecord {
			result.Outcome = models.MarkError
			return appErrors.Clone(appErrors.ErrInternal, "attendance record missing for enrolled student")
		}

		selfieRef := req.SelfieRef
		if len(req.SelfieData) > 0 && selfieRef == nil {
			ref := store.SelfieKey(sess.ID, req.StudentID)
			selfieRef = &ref
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE attendance_records SET status = $3, selfie_ref = COALESCE($4, selfie_ref) WHERE student_id = $1 AND session_id = $2`,
			req.StudentID, sess.ID, models.AttendanceStatusPresent, selfieRef); err != nil {
			return fmt.Errorf("mark record: %w", err)
		}

		sess.ScannedCount++
		if sess.AtCapacity() {
			sess.PreviousQRCodeValue = sess.QRCodeValue
			sess.QRCodeValue = models.QRLimitReached
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET scanned_count = $2, qr_code_value = $3, previous_qr_code_value = $4 WHERE id = $1`,
			sess.ID, sess.ScannedCount, sess.QRCodeValue, sess.PreviousQRCodeValue); err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		record.Status = models.AttendanceStatusPresent
		record.SelfieRef = selfieRef
		sessCopy := sess
		result.Session = &sessCopy
		recCopy := record
		result.Record = &recCopy
		return nil
	})
	if err != nil && result.Outcome != models.MarkError {
		return nil, err
	}
	return result, err
}

// ToggleAttendance is the unconditional faculty override.
func (s *PostgresStore) ToggleAttendance(ctx context.Context, courseID, sessionID, studentID string) (*models.AttendanceRecord, error) {
	var out *models.AttendanceRecord
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		var sess models.Session
		err := tx.GetContext(ctx, &sess, sessionSelect+` WHERE id = $1 AND course_id = $2 FOR UPDATE`, sessionID, courseID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("find session: %w", err)
		}

		var record models.AttendanceRecord
		err = tx.GetContext(ctx, &record,
			`SELECT student_id, session_id, status, selfie_ref FROM attendance_records WHERE student_id = $1 AND session_id = $2 FOR UPDATE`,
			studentID, sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		if err != nil {
			return fmt.Errorf("find record: %w", err)
		}

		record.Status = record.Status.Toggle()
		if record.Status == models.AttendanceStatusPresent {
			sess.ScannedCount++
		} else if sess.ScannedCount > 0 {
			sess.ScannedCount--
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE attendance_records SET status = $3 WHERE student_id = $1 AND session_id = $2`,
			studentID, sessionID, record.Status); err != nil {
			return fmt.Errorf("toggle record: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET scanned_count = $2 WHERE id = $1`, sessionID, sess.ScannedCount); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		out = &record
		return nil
	})
	return out, err
}

// StartLiveClass ends every live class in the course, then opens a new one.
func (s *PostgresStore) StartLiveClass(ctx context.Context, courseID string) (*models.LiveClass, error) {
	now := s.clock.Now()
	lc := &models.LiveClass{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Status:    models.LiveClassStatusLive,
		StartTime: now,
		Attendees: []models.LiveClassAttendee{},
	}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requireCourse(ctx, tx, courseID); err != nil {
			return err
		}
		if err := s.finalizeLive(ctx, tx, courseID, now); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO live_classes (id, course_id, status, start_time) VALUES ($1, $2, $3, $4)`,
			lc.ID, courseID, lc.Status, lc.StartTime)
		if err != nil {
			return fmt.Errorf("start live class: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lc, nil
}

// EndLiveClass transitions live -> ended and finalizes open attendees.
func (s *PostgresStore) EndLiveClass(ctx context.Context, courseID, liveClassID string) (*models.LiveClass, error) {
	now := s.clock.Now()
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var status models.LiveClassStatus
		err := tx.GetContext(ctx, &status,
			`SELECT status FROM live_classes WHERE id = $1 AND course_id = $2 FOR UPDATE`, liveClassID, courseID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrLiveClassNotFound
		}
		if err != nil {
			return fmt.Errorf("find live class: %w", err)
		}
		if status == models.LiveClassStatusEnded {
			return appErrors.ErrLiveClassEnded
		}
		if err := s.closeAttendees(ctx, tx, liveClassID, now); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE live_classes SET status = $2, end_time = $3 WHERE id = $1`,
			liveClassID, models.LiveClassStatusEnded, now)
		if err != nil {
			return fmt.Errorf("end live class: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.liveClassByID(ctx, liveClassID)
}

// JoinLiveClass adds an attendee entry unless one is already open.
func (s *PostgresStore) JoinLiveClass(ctx context.Context, courseID, liveClassID, studentID string) (*models.LiveClass, error) {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var status models.LiveClassStatus
		err := tx.GetContext(ctx, &status,
			`SELECT status FROM live_classes WHERE id = $1 AND course_id = $2 FOR UPDATE`, liveClassID, courseID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrLiveClassNotFound
		}
		if err != nil {
			return fmt.Errorf("find live class: %w", err)
		}
		if status != models.LiveClassStatusLive {
			return appErrors.ErrLiveClassEnded
		}
		var open int
		if err := tx.GetContext(ctx, &open,
			`SELECT COUNT(*) FROM live_class_attendees WHERE live_class_id = $1 AND student_id = $2 AND leave_time IS NULL`,
			liveClassID, studentID); err != nil {
			return fmt.Errorf("check open entry: %w", err)
		}
		if open > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO live_class_attendees (live_class_id, student_id, join_time) VALUES ($1, $2, $3)`,
			liveClassID, studentID, s.clock.Now())
		if err != nil {
			return fmt.Errorf("join live class: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.liveClassByID(ctx, liveClassID)
}

// LeaveLiveClass closes the open attendee entry and computes the duration.
func (s *PostgresStore) LeaveLiveClass(ctx context.Context, courseID, liveClassID, studentID string) (*models.LiveClassAttendee, error) {
	now := s.clock.Now()
	var out *models.LiveClassAttendee
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var attendee models.LiveClassAttendee
		err := tx.GetContext(ctx, &attendee,
			`SELECT student_id, join_time, leave_time, duration_minutes FROM live_class_attendees
			 WHERE live_class_id = $1 AND student_id = $2 AND leave_time IS NULL FOR UPDATE`,
			liveClassID, studentID)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no open live class entry for student")
		}
		if err != nil {
			return fmt.Errorf("find attendee: %w", err)
		}
		minutes := math.Round(float64(now.Sub(attendee.JoinTime).Milliseconds())/60000.0*100) / 100
		_, err = tx.ExecContext(ctx,
			`UPDATE live_class_attendees SET leave_time = $3, duration_minutes = $4
			 WHERE live_class_id = $1 AND student_id = $2 AND leave_time IS NULL`,
			liveClassID, studentID, now, minutes)
		if err != nil {
			return fmt.Errorf("leave live class: %w", err)
		}
		attendee.LeaveTime = &now
		attendee.DurationMinutes = &minutes
		out = &attendee
		return nil
	})
	return out, err
}

// Reset truncates all attendance state.
func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`TRUNCATE live_class_attendees, live_classes, attendance_records, sessions, course_students, courses`)
	if err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return nil
}

const sessionSelect = `SELECT id, course_id, created_at, session_type, limit_count, scanned_count, qr_code_value, previous_qr_code_value, short_code, liveness_check FROM sessions`

func (s *PostgresStore) assemble(ctx context.Context, row courseRow) (*models.Course, error) {
	course := &models.Course{
		ID:                row.ID,
		Name:              row.Name,
		Code:              row.Code,
		BannerURL:         row.BannerURL,
		Students:          []models.Student{},
		Sessions:          []models.Session{},
		AttendanceRecords: []models.AttendanceRecord{},
		LiveClasses:       []models.LiveClass{},
	}

	var studentIDs []string
	if err := s.db.SelectContext(ctx, &studentIDs,
		`SELECT student_id FROM course_students WHERE course_id = $1 ORDER BY student_id`, row.ID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	for _, id := range studentIDs {
		if s.directory != nil {
			if stu, ok := s.directory.Find(id); ok {
				course.Students = append(course.Students, stu)
				continue
			}
		}
		course.Students = append(course.Students, models.Student{ID: id})
	}

	if err := s.db.SelectContext(ctx, &course.Sessions,
		sessionSelect+` WHERE course_id = $1 ORDER BY created_at`, row.ID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if err := s.db.SelectContext(ctx, &course.AttendanceRecords,
		`SELECT r.student_id, r.session_id, r.status, r.selfie_ref FROM attendance_records r
		 JOIN sessions s ON s.id = r.session_id WHERE s.course_id = $1 ORDER BY r.session_id, r.student_id`, row.ID); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var liveClasses []models.LiveClass
	if err := s.db.SelectContext(ctx, &liveClasses,
		`SELECT id, course_id, status, start_time, end_time FROM live_classes WHERE course_id = $1 ORDER BY start_time`, row.ID); err != nil {
		return nil, fmt.Errorf("list live classes: %w", err)
	}
	for i := range liveClasses {
		if err := s.db.SelectContext(ctx, &liveClasses[i].Attendees,
			`SELECT student_id, join_time, leave_time, duration_minutes FROM live_class_attendees WHERE live_class_id = $1 ORDER BY join_time`,
			liveClasses[i].ID); err != nil {
			return nil, fmt.Errorf("list attendees: %w", err)
		}
		if liveClasses[i].Attendees == nil {
			liveClasses[i].Attendees = []models.LiveClassAttendee{}
		}
	}
	course.LiveClasses = liveClasses
	if course.LiveClasses == nil {
		course.LiveClasses = []models.LiveClass{}
	}
	return course, nil
}

func (s *PostgresStore) liveClassByID(ctx context.Context, liveClassID string) (*models.LiveClass, error) {
	var lc models.LiveClass
	err := s.db.GetContext(ctx, &lc,
		`SELECT id, course_id, status, start_time, end_time FROM live_classes WHERE id = $1`, liveClassID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.ErrLiveClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find live class: %w", err)
	}
	if err := s.db.SelectContext(ctx, &lc.Attendees,
		`SELECT student_id, join_time, leave_time, duration_minutes FROM live_class_attendees WHERE live_class_id = $1 ORDER BY join_time`,
		liveClassID); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	if lc.Attendees == nil {
		lc.Attendees = []models.LiveClassAttendee{}
	}
	return &lc, nil
}

func (s *PostgresStore) finalizeLive(ctx context.Context, tx *sqlx.Tx, courseID string, now time.Time) error {
	var liveIDs []string
	if err := tx.SelectContext(ctx, &liveIDs,
		`SELECT id FROM live_classes WHERE course_id = $1 AND status = $2 FOR UPDATE`,
		courseID, models.LiveClassStatusLive); err != nil {
		return fmt.Errorf("list live classes: %w", err)
	}
	for _, id := range liveIDs {
		if err := s.closeAttendees(ctx, tx, id, now); err != nil {
			return err
		}
	}
	if len(liveIDs) > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE live_classes SET status = $2, end_time = $3 WHERE course_id = $1 AND status = $4`,
			courseID, models.LiveClassStatusEnded, now, models.LiveClassStatusLive); err != nil {
			return fmt.Errorf("end live classes: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) closeAttendees(ctx context.Context, tx *sqlx.Tx, liveClassID string, now time.Time) error {
	// Postgres computes the same 2-decimal rounding the in-memory store does.
	_, err := tx.ExecContext(ctx,
		`UPDATE live_class_attendees
		 SET leave_time = $2,
		     duration_minutes = ROUND(EXTRACT(EPOCH FROM ($2 - join_time))::numeric / 60, 2)
		 WHERE live_class_id = $1 AND leave_time IS NULL`,
		liveClassID, now)
	if err != nil {
		return fmt.Errorf("finalize attendees: %w", err)
	}
	return nil
}

func (s *PostgresStore) requireCourse(ctx context.Context, tx *sqlx.Tx, courseID string) error {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM courses WHERE id = $1`, courseID); err != nil {
		return fmt.Errorf("find course: %w", err)
	}
	if count == 0 {
		return appErrors.ErrCourseNotFound
	}
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, notFound *appErrors.Error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
