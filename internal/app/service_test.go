package service_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/telestra/telestra/internal/adapters/store"
	service "github.com/telestra/telestra/internal/app"
	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/internal/recorder"
	"github.com/telestra/telestra/internal/replay/scheduler"
	"github.com/telestra/telestra/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newService(t *testing.T) *service.Service {
	t.Helper()
	svc := service.New(
		service.WithTickInterval(10*time.Millisecond),
		service.WithGracePeriod(50*time.Millisecond),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func recordSampleSession(t *testing.T, svc *service.Service) string {
	t.Helper()
	ctx := context.Background()

	sess, err := svc.StartRecording(ctx, "video-1", model.Categories{"technique": 2})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RecordEvent(ctx, sess.ID, model.EventVideo, model.EventPayload{Action: model.ActionPlay}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordEvent(ctx, sess.ID, model.EventAnnotation, model.EventPayload{
		Action: model.ActionDraw,
		Stroke: &model.DrawingPath{
			Points: []model.Point{{X: 1, Y: 1}, {X: 5, Y: 5}},
			Tool:   model.ToolFreehand,
			Color:  "#ff0000",
			Width:  3,
		},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordEvent(ctx, sess.ID, model.EventMarker, model.EventPayload{Label: "checkpoint"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.StopRecording(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	return sess.ID
}

func waitForCompleted(svc *service.Service, sessionID string) (scheduler.Status, bool) {
	deadline := time.After(2 * time.Second)
	for {
		status, err := svc.ReplayStatus(context.Background(), sessionID)
		if err == nil && status.State == scheduler.StateCompleted {
			return status, true
		}
		select {
		case <-deadline:
			return status, false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRecordingLifecycle(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(t)

		convey.Convey("When a full recording runs", func() {
			sess, err := svc.StartRecording(ctx, "video-1", model.Categories{"technique": 2})
			convey.So(err, convey.ShouldBeNil)

			_, err = svc.RecordEvent(ctx, sess.ID, model.EventVideo, model.EventPayload{Action: model.ActionSeek, SeekTo: 12_000})
			convey.So(err, convey.ShouldBeNil)

			stopped, err := svc.StopRecording(ctx, sess.ID)

			convey.Convey("Then the session finalizes with its events and seeds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stopped.ID, convey.ShouldEqual, sess.ID)
				convey.So(stopped.Categories["technique"], convey.ShouldEqual, 2)
				// One seeded category audit event plus the seek.
				convey.So(len(stopped.Events), convey.ShouldEqual, 2)
			})

			convey.Convey("Then the session lands in the library", func() {
				convey.So(err, convey.ShouldBeNil)
				infos, err := svc.ListSessions(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(infos), convey.ShouldEqual, 1)
				convey.So(infos[0].ID, convey.ShouldEqual, sess.ID)
				convey.So(infos[0].HasAudio, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a second start races an active recording", func() {
			first, err := svc.StartRecording(ctx, "video-1", model.Categories{"technique": 2})
			convey.So(err, convey.ShouldBeNil)

			_, err = svc.StartRecording(ctx, "video-2", model.Categories{"intruder": 3})

			convey.Convey("Then the second start is refused outright", func() {
				convey.So(err, convey.ShouldWrap, recorder.ErrAlreadyRecording)
			})

			convey.Convey("Then the active session is untouched by the failed seed", func() {
				convey.So(err, convey.ShouldNotBeNil)
				stopped, err := svc.StopRecording(ctx, first.ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(stopped.Categories, convey.ShouldNotContainKey, "intruder")
				for _, e := range stopped.Events {
					convey.So(e.Payload.CategoryID, convey.ShouldNotEqual, "intruder")
				}
				convey.So(len(stopped.Events), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When events target the wrong session", func() {
			sess, err := svc.StartRecording(ctx, "video-1", nil)
			convey.So(err, convey.ShouldBeNil)

			_, err = svc.RecordEvent(ctx, "someone-else", model.EventVideo, model.EventPayload{Action: model.ActionPlay})
			convey.So(err, convey.ShouldWrap, service.ErrSessionBusy)

			_, err = svc.StopRecording(ctx, sess.ID)
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When no recording is active", func() {
			_, err := svc.RecordEvent(ctx, "ghost", model.EventVideo, model.EventPayload{Action: model.ActionPlay})
			convey.So(err, convey.ShouldWrap, recorder.ErrNotRecording)

			_, err = svc.StopRecording(ctx, "ghost")
			convey.So(err, convey.ShouldWrap, recorder.ErrNotRecording)
		})

		convey.Convey("When an event shape is unknown", func() {
			sess, err := svc.StartRecording(ctx, "video-1", nil)
			convey.So(err, convey.ShouldBeNil)

			_, err = svc.RecordEvent(ctx, sess.ID, "hologram", model.EventPayload{})
			convey.So(err, convey.ShouldWrap, service.ErrInvalidEvent)

			_, err = svc.RecordEvent(ctx, sess.ID, model.EventAnnotation, model.EventPayload{
				Action: model.ActionDraw,
				Stroke: &model.DrawingPath{Points: []model.Point{{X: 1, Y: 1}}},
			})
			convey.So(err, convey.ShouldWrap, service.ErrInvalidEvent)

			_, err = svc.StopRecording(ctx, sess.ID)
			convey.So(err, convey.ShouldBeNil)
		})
	})
}

func TestReplayLifecycle(t *testing.T) {
	convey.Convey("Given a service with a recorded session", t, func() {
		ctx := context.Background()
		svc := newService(t)
		sessionID := recordSampleSession(t, svc)

		convey.Convey("When the session replays", func() {
			convey.So(svc.StartReplay(ctx, sessionID), convey.ShouldBeNil)

			convey.Convey("Then it runs to completion with nothing pending", func() {
				status, done := waitForCompleted(svc, sessionID)
				convey.So(done, convey.ShouldBeTrue)
				convey.So(status.Pending, convey.ShouldEqual, 0)
				convey.So(status.Executed, convey.ShouldBeGreaterThanOrEqualTo, 3)
			})

			convey.Convey("Then replaying again after completion rebuilds the scheduler", func() {
				_, done := waitForCompleted(svc, sessionID)
				convey.So(done, convey.ShouldBeTrue)

				convey.So(svc.StartReplay(ctx, sessionID), convey.ShouldBeNil)
				_, done = waitForCompleted(svc, sessionID)
				convey.So(done, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a replay is stopped mid-flight", func() {
			convey.So(svc.StartReplay(ctx, sessionID), convey.ShouldBeNil)
			convey.So(svc.StopReplay(ctx, sessionID), convey.ShouldBeNil)

			convey.Convey("Then its status is gone", func() {
				_, err := svc.ReplayStatus(ctx, sessionID)
				convey.So(err, convey.ShouldWrap, service.ErrNoReplay)
			})
		})

		convey.Convey("When the session does not exist", func() {
			convey.So(svc.StartReplay(ctx, "missing"), convey.ShouldWrap, store.ErrNotFound)
			convey.So(svc.StopReplay(ctx, "missing"), convey.ShouldWrap, service.ErrNoReplay)
		})

		convey.Convey("When the session is still being recorded", func() {
			active, err := svc.StartRecording(ctx, "video-2", nil)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then replaying it is refused", func() {
				convey.So(svc.StartReplay(ctx, active.ID), convey.ShouldWrap, service.ErrSessionBusy)
			})

			_, err = svc.StopRecording(ctx, active.ID)
			convey.So(err, convey.ShouldBeNil)
		})
	})
}

func TestStoredSessionEdits(t *testing.T) {
	convey.Convey("Given a persisted session", t, func() {
		ctx := context.Background()
		svc := newService(t)
		sessionID := recordSampleSession(t, svc)

		readStored := func() (model.Categories, []model.TimelineEvent) {
			payload, err := svc.GetSession(ctx, sessionID)
			convey.So(err, convey.ShouldBeNil)
			var stored struct {
				Categories model.Categories      `json:"categories"`
				Events     []model.TimelineEvent `json:"events"`
			}
			convey.So(json.Unmarshal(payload, &stored), convey.ShouldBeNil)
			return stored.Categories, stored.Events
		}

		convey.Convey("When a category is edited after the fact", func() {
			_, before := readStored()
			convey.So(svc.SetCategory(ctx, sessionID, "effort", 3), convey.ShouldBeNil)

			convey.Convey("Then the stored payload reflects the edit", func() {
				categories, _ := readStored()
				convey.So(categories["effort"], convey.ShouldEqual, 3)
				convey.So(categories["technique"], convey.ShouldEqual, 2)
			})

			convey.Convey("Then the edit is audited in the event log", func() {
				_, events := readStored()
				convey.So(len(events), convey.ShouldEqual, len(before)+1)
				audit := events[len(events)-1]
				convey.So(audit.Type, convey.ShouldEqual, model.EventCategory)
				convey.So(audit.Payload.CategoryID, convey.ShouldEqual, "effort")
				convey.So(audit.Payload.Rating, convey.ShouldEqual, 3)
				convey.So(audit.Payload.Prerecorded, convey.ShouldBeTrue)
				convey.So(audit.ID, convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When a rating is zeroed", func() {
			convey.So(svc.SetCategory(ctx, sessionID, "technique", 0), convey.ShouldBeNil)

			convey.Convey("Then the category disappears from the stored form", func() {
				categories, _ := readStored()
				convey.So(categories, convey.ShouldNotContainKey, "technique")
			})
		})

		convey.Convey("When the session is deleted", func() {
			convey.So(svc.DeleteSession(ctx, sessionID), convey.ShouldBeNil)

			convey.Convey("Then it is gone", func() {
				_, err := svc.GetSession(ctx, sessionID)
				convey.So(err, convey.ShouldWrap, store.ErrNotFound)
				convey.So(svc.DeleteSession(ctx, sessionID), convey.ShouldWrap, store.ErrNotFound)
			})
		})
	})
}

func TestServiceStats(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(t)

		convey.Convey("When idle", func() {
			stats := svc.GetStats()
			convey.So(stats["started"], convey.ShouldEqual, true)
			convey.So(stats["recording"], convey.ShouldEqual, false)
			convey.So(stats["activeReplays"], convey.ShouldEqual, 0)
		})

		convey.Convey("When recording", func() {
			sess, err := svc.StartRecording(ctx, "video-1", nil)
			convey.So(err, convey.ShouldBeNil)

			stats := svc.GetStats()
			convey.So(stats["recording"], convey.ShouldEqual, true)
			convey.So(stats["recordingSessionID"], convey.ShouldEqual, sess.ID)

			_, err = svc.StopRecording(ctx, sess.ID)
			convey.So(err, convey.ShouldBeNil)
		})
	})
}
