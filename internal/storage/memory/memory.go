// Package memory keeps live class state in process memory. It backs tests
// and single-process demos; every method is safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

type progressKey struct{ classID, userID int64 }

type intervalKey struct {
	classID, userID int64
	index           int
}

// Store implements live.Store.
type Store struct {
	mu        sync.Mutex
	sessions  map[int64]live.Session
	progress  map[progressKey]live.Progress
	intervals map[intervalKey]live.IntervalScore
}

var _ live.Store = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[int64]live.Session),
		progress:  make(map[progressKey]live.Progress),
		intervals: make(map[intervalKey]live.IntervalScore),
	}
}

func (s *Store) GetSession(_ context.Context, classID int64) (*live.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[classID]
	if !ok {
		return nil, fmt.Errorf("session for class %d: %w", classID, live.ErrNotFound)
	}
	return &sess, nil
}

func (s *Store) versionLocked(classID int64) int64 {
	if cur, ok := s.sessions[classID]; ok {
		return cur.Version
	}
	return 0
}

func (s *Store) CreateRun(_ context.Context, sess live.Session, expectVersion int64, members []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.versionLocked(sess.ClassID) != expectVersion {
		return live.ErrConflict
	}
	sess.Version = expectVersion + 1
	s.sessions[sess.ClassID] = sess

	for k := range s.progress {
		if k.classID == sess.ClassID {
			delete(s.progress, k)
		}
	}
	for k := range s.intervals {
		if k.classID == sess.ClassID {
			delete(s.intervals, k)
		}
	}
	at := time.Now()
	if sess.StartedAt != nil {
		at = *sess.StartedAt
	}
	for _, uid := range members {
		s.progress[progressKey{sess.ClassID, uid}] = live.Progress{ClassID: sess.ClassID, UserID: uid, UpdatedAt: at}
	}
	return nil
}

func (s *Store) UpdateSession(_ context.Context, sess live.Session, expectVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ClassID]; !ok {
		return fmt.Errorf("session for class %d: %w", sess.ClassID, live.ErrNotFound)
	}
	if s.versionLocked(sess.ClassID) != expectVersion {
		return live.ErrConflict
	}
	sess.Version = expectVersion + 1
	s.sessions[sess.ClassID] = sess
	return nil
}

func (s *Store) GetProgress(_ context.Context, classID, userID int64) (*live.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[progressKey{classID, userID}]
	if !ok {
		return nil, fmt.Errorf("progress for user %d: %w", userID, live.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) ListProgress(_ context.Context, classID int64) ([]live.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []live.Progress
	for k, p := range s.progress {
		if k.classID == classID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) UpdateProgress(_ context.Context, classID, userID int64, fn func(p *live.Progress) error) (live.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := progressKey{classID, userID}
	p, ok := s.progress[k]
	if !ok {
		p = live.Progress{ClassID: classID, UserID: userID}
	}
	if err := fn(&p); err != nil {
		return live.Progress{}, err
	}
	s.progress[k] = p
	return p, nil
}

func (s *Store) UpsertIntervalReps(_ context.Context, classID, userID int64, stepIndex, reps int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := intervalKey{classID, userID, stepIndex}
	sc := s.intervals[k]
	sc.ClassID, sc.UserID, sc.StepIndex = classID, userID, stepIndex
	sc.Reps = reps
	sc.UpdatedAt = at
	s.intervals[k] = sc
	return nil
}

func (s *Store) UpsertIntervalMark(_ context.Context, classID, userID int64, stepIndex int, finished bool, finishSeconds *int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := intervalKey{classID, userID, stepIndex}
	sc := s.intervals[k]
	sc.ClassID, sc.UserID, sc.StepIndex = classID, userID, stepIndex
	sc.Finished = finished
	sc.FinishSeconds = finishSeconds
	sc.UpdatedAt = at
	s.intervals[k] = sc
	return nil
}

func (s *Store) ListIntervalScores(_ context.Context, classID int64) ([]live.IntervalScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []live.IntervalScore
	for k, sc := range s.intervals {
		if k.classID == classID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].StepIndex < out[j].StepIndex
	})
	return out, nil
}

// Directory implements live.Directory over in-memory classes, bookings,
// workouts and attendance.
type Directory struct {
	mu         sync.Mutex
	classes    map[int64]live.Class
	bookings   map[int64]map[int64]bool
	workouts   map[int64]workout.Workout
	attendance map[int64]map[int64]live.AttendanceScore
}

var _ live.Directory = (*Directory)(nil)

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		classes:    make(map[int64]live.Class),
		bookings:   make(map[int64]map[int64]bool),
		workouts:   make(map[int64]workout.Workout),
		attendance: make(map[int64]map[int64]live.AttendanceScore),
	}
}

// PutClass adds or replaces a class.
func (d *Directory) PutClass(c live.Class) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classes[c.ID] = c
}

// Book books a member into a class.
func (d *Directory) Book(classID int64, userIDs ...int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.bookings[classID]
	if !ok {
		m = make(map[int64]bool)
		d.bookings[classID] = m
	}
	for _, id := range userIDs {
		m[id] = true
	}
}

// PutWorkout adds or replaces a workout. The version is bumped when the
// workout already exists and the caller left it unchanged.
func (d *Directory) PutWorkout(w workout.Workout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.workouts[w.ID]; ok && w.Version <= prev.Version {
		w.Version = prev.Version + 1
	}
	if w.Version == 0 {
		w.Version = 1
	}
	d.workouts[w.ID] = w
}

func (d *Directory) GetClass(_ context.Context, classID int64) (live.Class, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.classes[classID]
	if !ok {
		return live.Class{}, fmt.Errorf("class %d: %w", classID, live.ErrNotFound)
	}
	return c, nil
}

func (d *Directory) IsClassCoach(_ context.Context, classID, coachID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.classes[classID]
	return ok && c.CoachID == coachID, nil
}

func (d *Directory) IsBooked(_ context.Context, classID, userID int64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bookings[classID][userID], nil
}

func (d *Directory) BookedMembers(_ context.Context, classID int64) ([]int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int64, 0, len(d.bookings[classID]))
	for id := range d.bookings[classID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (d *Directory) WorkoutVersion(_ context.Context, workoutID int64) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.workouts[workoutID]
	if !ok {
		return 0, fmt.Errorf("workout %d: %w", workoutID, live.ErrNotFound)
	}
	return w.Version, nil
}

func (d *Directory) GetWorkoutStructure(_ context.Context, workoutID int64) (workout.Workout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.workouts[workoutID]
	if !ok {
		return workout.Workout{}, fmt.Errorf("workout %d: %w", workoutID, live.ErrNotFound)
	}
	return w, nil
}

func (d *Directory) WriteAttendanceScore(_ context.Context, sc live.AttendanceScore) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.attendance[sc.ClassID]
	if !ok {
		m = make(map[int64]live.AttendanceScore)
		d.attendance[sc.ClassID] = m
	}
	m[sc.UserID] = sc
	return nil
}

func (d *Directory) AttendanceScores(_ context.Context, classID int64) ([]live.AttendanceScore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]live.AttendanceScore, 0, len(d.attendance[classID]))
	for _, sc := range d.attendance[classID] {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
