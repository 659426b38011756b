package progress

import (
	"math"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// TotalLessons is the number of distinct lessons required for certification.
const TotalLessons = 4

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is the per-user course progress. It is created at registration (or
// lazily on first access) and mutated only through CompleteLesson.
type Record struct {
	// UserID - owner, one record per user.
	UserID shared.UserID

	// LessonsCompleted - number of distinct lessons ever completed.
	LessonsCompleted int

	// TotalScore - sum of every submitted score, resubmissions included.
	TotalScore float64

	// CompletedLessons - distinct completed lesson ids, ascending.
	CompletedLessons LessonSet

	// Details - latest submission per lesson.
	Details LessonDetails

	// CertificationEarned - flips false->true once and never back.
	CertificationEarned bool

	// CertificationDate - set on the certification transition, nil before.
	CertificationDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord returns the empty default record for a user.
func NewRecord(userID shared.UserID, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		UserID:           userID,
		CompletedLessons: LessonSet{},
		Details:          LessonDetails{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// LessonOutcome describes what one CompleteLesson call changed.
type LessonOutcome struct {
	LessonID LessonID

	// NewLesson is false when the lesson had been completed before.
	NewLesson bool

	// JustCertified is true only on the call that earned the certification.
	JustCertified bool
}

// CompleteLesson applies one lesson submission:
//
//  1. a lesson not seen before joins CompletedLessons and bumps LessonsCompleted;
//  2. the detail entry is overwritten with the new score and time;
//  3. TotalScore grows by score on every call, resubmissions included;
//  4. reaching TotalLessons distinct lessons certifies the record, once.
func (r *Record) CompleteLesson(id LessonID, score shared.Score, now time.Time) LessonOutcome {
	now = now.UTC()
	out := LessonOutcome{LessonID: id}

	if r.Details == nil {
		r.Details = LessonDetails{}
	}

	r.CompletedLessons, out.NewLesson = r.CompletedLessons.Insert(id)
	if out.NewLesson {
		r.LessonsCompleted++
	}

	r.Details[id] = LessonDetail{
		Score:       score.Float64(),
		Completed:   true,
		CompletedAt: now,
	}

	r.TotalScore += score.Float64()

	if r.AllLessonsCompleted() && !r.CertificationEarned {
		r.CertificationEarned = true
		certifiedAt := now
		r.CertificationDate = &certifiedAt
		out.JustCertified = true
	}

	r.UpdatedAt = now
	return out
}

// Reconcile restores the counting invariants of a record read back from
// storage: every lesson with a detail entry belongs to CompletedLessons, and
// LessonsCompleted equals the size of that set. It reports whether the
// record changed. Certification is left as stored.
func (r *Record) Reconcile() bool {
	changed := false
	if r.CompletedLessons == nil {
		r.CompletedLessons = LessonSet{}
	}
	if r.Details == nil {
		r.Details = LessonDetails{}
	}

	for id := range r.Details {
		var added bool
		r.CompletedLessons, added = r.CompletedLessons.Insert(id)
		changed = changed || added
	}

	if n := r.CompletedLessons.Len(); r.LessonsCompleted != n {
		r.LessonsCompleted = n
		changed = true
	}
	return changed
}

// AllLessonsCompleted reports whether enough distinct lessons are completed.
func (r *Record) AllLessonsCompleted() bool {
	return r.CompletedLessons.Len() >= TotalLessons
}

// IsCompleted reports whether the lesson has been completed at least once.
func (r *Record) IsCompleted(id LessonID) bool {
	return r.CompletedLessons.Contains(id)
}

// IsUnlocked reports whether the lesson may be taken: the first lesson always
// is, lesson N is once lesson N-1 is completed.
func (r *Record) IsUnlocked(id LessonID) bool {
	if id <= 1 {
		return true
	}
	return r.CompletedLessons.Contains(id - 1)
}

// UnlockedLessons lists the unlocked lessons of the course, ascending.
func (r *Record) UnlockedLessons() []int {
	out := make([]int, 0, TotalLessons)
	for id := LessonID(1); id <= TotalLessons; id++ {
		if r.IsUnlocked(id) {
			out = append(out, int(id))
		}
	}
	return out
}

// NextLesson returns the first course lesson not yet completed.
func (r *Record) NextLesson() (LessonID, bool) {
	for id := LessonID(1); id <= TotalLessons; id++ {
		if !r.CompletedLessons.Contains(id) {
			return id, true
		}
	}
	return 0, false
}

// ProgressPercentage is round(completed / TotalLessons * 100), capped at 100.
func (r *Record) ProgressPercentage() int {
	pct := int(math.Round(float64(r.CompletedLessons.Len()) / TotalLessons * 100))
	if pct > 100 {
		return 100
	}
	return pct
}
