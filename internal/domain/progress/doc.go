// Package progress holds the learning-progress aggregate and its update rules.
//
// Two records share one schema:
//
//   - Record, keyed by user: completed lesson set, per-lesson details, score
//     total and the one-way certification flag.
//   - TopicProgress, keyed by (user, topic): running average score and the
//     adaptive difficulty in [1,5].
//
// Both update rules are pure methods (Record.CompleteLesson and
// TopicProgress.RecordScore). Persistence, XP awards and events are driven
// by the application layer.
package progress
