package timeline_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/internal/domain/timeline"
)

func TestLogAppend(t *testing.T) {
	convey.Convey("Given an empty event log", t, func() {
		log := timeline.NewLog()

		convey.Convey("When appending a valid event", func() {
			stored, err := log.Append(model.TimelineEvent{
				Type:       model.EventVideo,
				TimeOffset: 1_000,
				Payload:    model.EventPayload{Action: model.ActionPlay},
			})

			convey.Convey("Then it is stored with a fresh id and sequence", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stored.ID, convey.ShouldNotBeEmpty)
				convey.So(stored.Seq, convey.ShouldEqual, 0)
				convey.So(log.Len(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When appending preserves a provided id", func() {
			stored, err := log.Append(model.TimelineEvent{
				ID:         "event-keep",
				Type:       model.EventMarker,
				TimeOffset: 0,
			})

			convey.So(err, convey.ShouldBeNil)
			convey.So(stored.ID, convey.ShouldEqual, "event-keep")
		})

		convey.Convey("When appending a negative offset", func() {
			_, err := log.Append(model.TimelineEvent{Type: model.EventVideo, TimeOffset: -1})

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldWrap, timeline.ErrInvalidOffset)
				convey.So(log.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When appending an unknown type", func() {
			_, err := log.Append(model.TimelineEvent{Type: "bogus", TimeOffset: 10})

			convey.So(err, convey.ShouldWrap, timeline.ErrInvalidType)
		})

		convey.Convey("When the log is at capacity", func() {
			small := timeline.NewLog(timeline.WithCapacity(1))
			_, err := small.Append(model.TimelineEvent{Type: model.EventVideo, TimeOffset: 0})
			convey.So(err, convey.ShouldBeNil)

			_, err = small.Append(model.TimelineEvent{Type: model.EventVideo, TimeOffset: 1})

			convey.Convey("Then further appends fail", func() {
				convey.So(err, convey.ShouldWrap, timeline.ErrLogFull)
			})
		})
	})
}

func TestLogOrdering(t *testing.T) {
	convey.Convey("Given events appended out of timeline order", t, func() {
		log := timeline.NewLog()

		_, err := log.Append(model.TimelineEvent{ID: "late-draw", Type: model.EventAnnotation, TimeOffset: 5_000})
		convey.So(err, convey.ShouldBeNil)
		_, err = log.Append(model.TimelineEvent{ID: "early-play", Type: model.EventVideo, TimeOffset: 0})
		convey.So(err, convey.ShouldBeNil)
		_, err = log.Append(model.TimelineEvent{ID: "tied-rating", Type: model.EventCategory, TimeOffset: 5_000})
		convey.So(err, convey.ShouldBeNil)
		_, err = log.Append(model.TimelineEvent{ID: "tied-seek", Type: model.EventVideo, TimeOffset: 5_000})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When taking a plain snapshot", func() {
			events := log.Snapshot()

			convey.Convey("Then insertion order is preserved", func() {
				convey.So(events[0].ID, convey.ShouldEqual, "late-draw")
				convey.So(events[1].ID, convey.ShouldEqual, "early-play")
			})
		})

		convey.Convey("When taking a sorted snapshot", func() {
			events := log.SortedSnapshot()

			convey.Convey("Then offset sorts first, then priority, then insertion", func() {
				convey.So(events[0].ID, convey.ShouldEqual, "early-play")
				convey.So(events[1].ID, convey.ShouldEqual, "tied-seek")
				convey.So(events[2].ID, convey.ShouldEqual, "late-draw")
				convey.So(events[3].ID, convey.ShouldEqual, "tied-rating")
			})
		})

		convey.Convey("When asking for the max offset", func() {
			convey.So(log.MaxOffset(), convey.ShouldEqual, 5_000)
		})

		convey.Convey("When clearing", func() {
			log.Clear()

			convey.Convey("Then the log is empty and sequences restart", func() {
				convey.So(log.Len(), convey.ShouldEqual, 0)
				convey.So(log.MaxOffset(), convey.ShouldEqual, 0)
				stored, err := log.Append(model.TimelineEvent{Type: model.EventVideo, TimeOffset: 0})
				convey.So(err, convey.ShouldBeNil)
				convey.So(stored.Seq, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestLogReplace(t *testing.T) {
	convey.Convey("Given a log armed from a loaded session", t, func() {
		log := timeline.NewLog()
		log.Replace([]model.TimelineEvent{
			{ID: "b", Type: model.EventAnnotation, TimeOffset: 100},
			{ID: "a", Type: model.EventAnnotation, TimeOffset: 100},
		})

		convey.Convey("Then sequences follow the given order", func() {
			events := log.Snapshot()
			convey.So(events[0].Seq, convey.ShouldEqual, 0)
			convey.So(events[1].Seq, convey.ShouldEqual, 1)
		})

		convey.Convey("Then tied events replay in the given order", func() {
			events := log.SortedSnapshot()
			convey.So(events[0].ID, convey.ShouldEqual, "b")
			convey.So(events[1].ID, convey.ShouldEqual, "a")
		})
	})
}

func TestSortStability(t *testing.T) {
	convey.Convey("Given events with identical ordering keys", t, func() {
		events := []model.TimelineEvent{
			{ID: "first", Type: model.EventMarker, TimeOffset: 42, Seq: 7},
			{ID: "second", Type: model.EventMarker, TimeOffset: 42, Seq: 7},
		}

		convey.Convey("When sorting", func() {
			timeline.Sort(events)

			convey.Convey("Then original slice order is kept", func() {
				convey.So(events[0].ID, convey.ShouldEqual, "first")
				convey.So(events[1].ID, convey.ShouldEqual, "second")
			})
		})
	})
}
