package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LESSON IDS
// ══════════════════════════════════════════════════════════════════════════════

// LessonID identifies a lesson of the course. IDs are positive and ordered:
// lesson N follows lesson N-1.
type LessonID int

// NewLessonID validates a raw lesson id.
func NewLessonID(v int) (LessonID, error) {
	if v <= 0 {
		return 0, shared.ErrInvalidLessonID
	}
	return LessonID(v), nil
}

// Int returns the underlying int value.
func (id LessonID) Int() int {
	return int(id)
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON SET
// ══════════════════════════════════════════════════════════════════════════════

// LessonSet is an ascending set of lesson ids without duplicates.
// The zero value is an empty set. Use Insert to keep the ordering invariant.
type LessonSet []LessonID

// NewLessonSet builds a set from arbitrary ids, sorting and deduplicating.
func NewLessonSet(ids ...LessonID) LessonSet {
	var s LessonSet
	for _, id := range ids {
		s, _ = s.Insert(id)
	}
	return s
}

// Len returns the number of ids in the set.
func (s LessonSet) Len() int {
	return len(s)
}

// Contains reports whether id is in the set.
func (s LessonSet) Contains(id LessonID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Insert returns the set with id added and whether it was absent before.
// The receiver is not modified.
func (s LessonSet) Insert(id LessonID) (LessonSet, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	if i < len(s) && s[i] == id {
		return s, false
	}
	out := make(LessonSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, id)
	out = append(out, s[i:]...)
	return out, true
}

// Ints returns the ids as plain ints, never nil.
func (s LessonSet) Ints() []int {
	out := make([]int, len(s))
	for i, id := range s {
		out[i] = int(id)
	}
	return out
}

// MarshalJSON always emits an array, "[]" for the empty set.
func (s LessonSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ints())
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON DETAILS
// ══════════════════════════════════════════════════════════════════════════════

// LessonDetail is the latest submission for one lesson.
type LessonDetail struct {
	Score       float64   `json:"score"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
}

// LessonDetails maps a lesson to its latest submission.
type LessonDetails map[LessonID]LessonDetail

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT CODECS
// Both structures are persisted as JSON documents. Decoding validates the
// document and keeps every valid entry. Anything invalid is dropped and
// reported with ErrCorruptDocument, so readers can log it and go on.
// ══════════════════════════════════════════════════════════════════════════════

// ErrCorruptDocument marks a stored document that failed validation.
var ErrCorruptDocument = shared.NewDomainError("progress", "Decode", shared.ErrInvalidFormat, "corrupt progress document")

func corrupt(field string, err error) error {
	return shared.WrapError("progress", "Decode", shared.ErrInvalidFormat,
		fmt.Sprintf("corrupt %s document", field), fmt.Errorf("%w: %v", ErrCorruptDocument, err))
}

func isEmptyDocument(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// EncodeLessonSet serializes the set as a JSON array of integers.
func EncodeLessonSet(s LessonSet) ([]byte, error) {
	return json.Marshal(s.Ints())
}

// DecodeLessonSet parses a stored set. Missing documents decode to the empty
// set without error. The result is always sorted and deduplicated. Invalid
// ids are dropped and reported with ErrCorruptDocument; the valid ones are
// still returned.
func DecodeLessonSet(data []byte) (LessonSet, error) {
	if isEmptyDocument(data) {
		return LessonSet{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LessonSet{}, corrupt("completed_lessons", err)
	}

	set := LessonSet{}
	var invalid []string
	for _, item := range raw {
		var v int
		if err := json.Unmarshal(item, &v); err != nil {
			invalid = append(invalid, string(item))
			continue
		}
		id, err := NewLessonID(v)
		if err != nil {
			invalid = append(invalid, string(item))
			continue
		}
		set, _ = set.Insert(id)
	}
	if len(invalid) > 0 {
		return set, corrupt("completed_lessons", fmt.Errorf("invalid lesson ids %s", strings.Join(invalid, ", ")))
	}
	return set, nil
}

// EncodeLessonDetails serializes the map as a JSON object keyed by lesson id.
func EncodeLessonDetails(d LessonDetails) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	out := make(map[string]LessonDetail, len(d))
	for id, detail := range d {
		detail.CompletedAt = detail.CompletedAt.UTC()
		out[strconv.Itoa(int(id))] = detail
	}
	return json.Marshal(out)
}

type rawLessonDetail struct {
	Score       *float64   `json:"score"`
	Completed   *bool      `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// DecodeLessonDetails parses a stored detail map. Every entry must have a
// positive integer key, a score, completed=true and a completion time.
// Entries breaking that are dropped and reported with ErrCorruptDocument;
// the valid ones are still returned.
func DecodeLessonDetails(data []byte) (LessonDetails, error) {
	if isEmptyDocument(data) {
		return LessonDetails{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LessonDetails{}, corrupt("lesson_details", err)
	}

	details := make(LessonDetails, len(raw))
	var invalid []string
	for key, doc := range raw {
		id, detail, ok := decodeLessonDetail(key, doc)
		if !ok {
			invalid = append(invalid, strconv.Quote(key))
			continue
		}
		details[id] = detail
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return details, corrupt("lesson_details", fmt.Errorf("invalid entries %s", strings.Join(invalid, ", ")))
	}
	return details, nil
}

func decodeLessonDetail(key string, doc json.RawMessage) (LessonID, LessonDetail, bool) {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, LessonDetail{}, false
	}
	id, err := NewLessonID(n)
	if err != nil {
		return 0, LessonDetail{}, false
	}

	var entry rawLessonDetail
	if err := json.Unmarshal(doc, &entry); err != nil {
		return 0, LessonDetail{}, false
	}
	if entry.Score == nil || entry.Completed == nil || !*entry.Completed || entry.CompletedAt == nil {
		return 0, LessonDetail{}, false
	}
	return id, LessonDetail{
		Score:       *entry.Score,
		Completed:   true,
		CompletedAt: entry.CompletedAt.UTC(),
	}, true
}
