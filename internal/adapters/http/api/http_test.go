package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/smartystreets/goconvey/convey"

	"github.com/telestra/telestra/internal/adapters/http/api"
	"github.com/telestra/telestra/internal/adapters/store"
	service "github.com/telestra/telestra/internal/app"
	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/internal/recorder"
	"github.com/telestra/telestra/internal/replay/scheduler"
)

// fakeDeps scripts the dependency bundle behind the handlers.
type fakeDeps struct {
	startErr   error
	recordErr  error
	stopErr    error
	setErr     error
	replayErr  error
	statusErr  error
	listErr    error
	getErr     error
	deleteErr  error
	session    *model.FeedbackSession
	event      model.TimelineEvent
	status     scheduler.Status
	infos      []store.Info
	payload    []byte
	lastVideo  string
	lastRating int
	lastCat    string
}

func (f *fakeDeps) StartRecording(_ context.Context, videoID string, categories model.Categories) (*model.FeedbackSession, error) {
	f.lastVideo = videoID
	if f.startErr != nil {
		return nil, f.startErr
	}
	if f.session == nil {
		f.session = &model.FeedbackSession{ID: "session-1", VideoID: videoID, StartTime: 42, Categories: categories}
	}
	return f.session, nil
}

func (f *fakeDeps) RecordEvent(_ context.Context, sessionID string, eventType model.EventType, payload model.EventPayload) (model.TimelineEvent, error) {
	if f.recordErr != nil {
		return model.TimelineEvent{}, f.recordErr
	}
	f.event = model.TimelineEvent{ID: "event-1", Type: eventType, TimeOffset: 1_000, Payload: payload}
	return f.event, nil
}

func (f *fakeDeps) StopRecording(context.Context, string) (*model.FeedbackSession, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return &model.FeedbackSession{ID: "session-1", EndTime: 99}, nil
}

func (f *fakeDeps) SetCategory(_ context.Context, _ string, categoryID string, rating int) error {
	f.lastCat = categoryID
	f.lastRating = rating
	return f.setErr
}

func (f *fakeDeps) StartReplay(context.Context, string) error { return f.replayErr }
func (f *fakeDeps) StopReplay(context.Context, string) error  { return f.replayErr }

func (f *fakeDeps) ReplayStatus(context.Context, string) (scheduler.Status, error) {
	if f.statusErr != nil {
		return scheduler.Status{}, f.statusErr
	}
	return f.status, nil
}

func (f *fakeDeps) ListSessions(context.Context) ([]store.Info, error) {
	return f.infos, f.listErr
}

func (f *fakeDeps) GetSession(context.Context, string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.payload, nil
}

func (f *fakeDeps) DeleteSession(context.Context, string) error { return f.deleteErr }

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *fakeDeps) *httptest.Server {
	r := chi.NewRouter()
	api.NewServer(deps, fakeStats{}).Register(r)
	return httptest.NewServer(r)
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestRecordingEndpoints(t *testing.T) {
	convey.Convey("Given the recording API", t, func() {
		deps := &fakeDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		convey.Convey("When a session starts", func() {
			resp := do(t, http.MethodPost, srv.URL+"/sessions", map[string]any{
				"videoId":    "video-7",
				"categories": map[string]int{"technique": 2},
			})

			convey.Convey("Then it returns the created session", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
				body := decode[map[string]any](t, resp)
				convey.So(body["sessionId"], convey.ShouldEqual, "session-1")
				convey.So(deps.lastVideo, convey.ShouldEqual, "video-7")
			})
		})

		convey.Convey("When the start body misses the video id", func() {
			resp := do(t, http.MethodPost, srv.URL+"/sessions", map[string]any{"videoId": "  "})
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When a recorder is already active", func() {
			deps.startErr = recorder.ErrAlreadyRecording
			resp := do(t, http.MethodPost, srv.URL+"/sessions", map[string]any{"videoId": "video-7"})
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusConflict)
		})

		convey.Convey("When events are submitted", func() {
			resp := do(t, http.MethodPost, srv.URL+"/sessions/session-1/events", map[string]any{
				"type": "video", "action": "seek", "seekTo": 30000,
			})

			convey.Convey("Then the typed event comes back", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
				event := decode[model.TimelineEvent](t, resp)
				convey.So(event.Type, convey.ShouldEqual, model.EventVideo)
				convey.So(event.Payload.SeekTo, convey.ShouldEqual, 30_000)
			})
		})

		convey.Convey("When an event is malformed", func() {
			cases := []map[string]any{
				{"type": "video", "action": "warp"},
				{"type": "video", "action": "playback-rate-change", "rate": 0},
				{"type": "video", "action": "shortcut"},
				{"type": "annotation", "action": "draw"},
				{"type": "telepathy"},
			}
			for _, body := range cases {
				resp := do(t, http.MethodPost, srv.URL+"/sessions/session-1/events", body)
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
			}
		})

		convey.Convey("When recording without an active session", func() {
			deps.recordErr = recorder.ErrNotRecording
			resp := do(t, http.MethodPost, srv.URL+"/sessions/session-1/events", map[string]any{
				"type": "video", "action": "play",
			})
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusConflict)
		})

		convey.Convey("When the recording stops", func() {
			resp := do(t, http.MethodPost, srv.URL+"/sessions/session-1/stop", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			s := decode[model.FeedbackSession](t, resp)
			convey.So(s.EndTime, convey.ShouldEqual, 99)
		})

		convey.Convey("When a category is rated", func() {
			resp := do(t, http.MethodPut, srv.URL+"/sessions/session-1/categories/technique", map[string]any{"rating": 3})

			convey.Convey("Then the rating lands", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNoContent)
				convey.So(deps.lastCat, convey.ShouldEqual, "technique")
				convey.So(deps.lastRating, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When a category rating is negative", func() {
			resp := do(t, http.MethodPut, srv.URL+"/sessions/session-1/categories/technique", map[string]any{"rating": -1})
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReplayEndpoints(t *testing.T) {
	convey.Convey("Given the replay API", t, func() {
		deps := &fakeDeps{status: scheduler.Status{State: scheduler.StatePlaying, Position: 1_500, Pending: 4, Executed: 2}}
		srv := newTestServer(deps)
		defer srv.Close()

		convey.Convey("When a replay starts", func() {
			resp := do(t, http.MethodPost, srv.URL+"/sessions/session-1/replay", nil)

			convey.Convey("Then the status snapshot is accepted", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)
				status := decode[scheduler.Status](t, resp)
				convey.So(status.State, convey.ShouldEqual, scheduler.StatePlaying)
				convey.So(status.Pending, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the session does not exist", func() {
			deps.replayErr = store.ErrNotFound
			resp := do(t, http.MethodPost, srv.URL+"/sessions/missing/replay", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("When the session is being recorded", func() {
			deps.replayErr = service.ErrSessionBusy
			resp := do(t, http.MethodPost, srv.URL+"/sessions/session-1/replay", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusConflict)
		})

		convey.Convey("When a replay is already playing", func() {
			deps.replayErr = scheduler.ErrAlreadyPlaying
			resp := do(t, http.MethodPost, srv.URL+"/sessions/session-1/replay", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusConflict)
		})

		convey.Convey("When status is requested for an idle session", func() {
			deps.statusErr = service.ErrNoReplay
			resp := do(t, http.MethodGet, srv.URL+"/sessions/session-1/replay", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("When a replay stops", func() {
			resp := do(t, http.MethodDelete, srv.URL+"/sessions/session-1/replay", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNoContent)
		})
	})
}

func TestLibraryEndpoints(t *testing.T) {
	convey.Convey("Given the session library API", t, func() {
		deps := &fakeDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		convey.Convey("When listing with no sessions", func() {
			resp := do(t, http.MethodGet, srv.URL+"/sessions", nil)

			convey.Convey("Then an empty array comes back, not null", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				infos := decode[[]store.Info](t, resp)
				convey.So(infos, convey.ShouldNotBeNil)
				convey.So(infos, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When listing persisted sessions", func() {
			deps.infos = []store.Info{
				{ID: "s2", VideoID: "v", StartTime: 200},
				{ID: "s1", VideoID: "v", StartTime: 100},
			}
			resp := do(t, http.MethodGet, srv.URL+"/sessions", nil)

			infos := decode[[]store.Info](t, resp)
			convey.So(len(infos), convey.ShouldEqual, 2)
			convey.So(infos[0].ID, convey.ShouldEqual, "s2")
		})

		convey.Convey("When fetching a stored session", func() {
			deps.payload = []byte(`{"id":"s1","events":[]}`)
			resp := do(t, http.MethodGet, srv.URL+"/sessions/s1", nil)

			convey.Convey("Then the stored payload returns verbatim", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				body := decode[map[string]any](t, resp)
				convey.So(body["id"], convey.ShouldEqual, "s1")
			})
		})

		convey.Convey("When fetching an unknown session", func() {
			deps.getErr = store.ErrNotFound
			resp := do(t, http.MethodGet, srv.URL+"/sessions/missing", nil)

			convey.Convey("Then the error body carries the code", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
				body := decode[map[string]any](t, resp)
				convey.So(body["code"], convey.ShouldEqual, "not_found")
			})
		})

		convey.Convey("When deleting a session", func() {
			resp := do(t, http.MethodDelete, srv.URL+"/sessions/s1", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNoContent)
		})

		convey.Convey("When the backend fails", func() {
			deps.listErr = errors.New("disk on fire")
			resp := do(t, http.MethodGet, srv.URL+"/sessions", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	convey.Convey("Given the operational endpoints", t, func() {
		srv := newTestServer(&fakeDeps{})
		defer srv.Close()

		convey.Convey("When health is probed", func() {
			resp := do(t, http.MethodGet, srv.URL+"/healthz", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			body := decode[map[string]any](t, resp)
			convey.So(body["status"], convey.ShouldEqual, "ok")
		})

		convey.Convey("When stats are requested", func() {
			resp := do(t, http.MethodGet, srv.URL+"/stats", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			body := decode[map[string]any](t, resp)
			convey.So(body["started"], convey.ShouldEqual, true)
		})

		convey.Convey("When metrics are scraped", func() {
			resp := do(t, http.MethodGet, srv.URL+"/metrics", nil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}
