package store_test

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/telestra/telestra/internal/adapters/store"
)

func TestMemoryStore(t *testing.T) {
	convey.Convey("Given an in-memory session store", t, func() {
		ctx := context.Background()
		m := store.NewMemoryStore()

		info := func(id string, start int64) store.Info {
			return store.Info{ID: id, VideoID: "video-1", StartTime: start, Events: 2}
		}

		convey.Convey("When a session is saved and loaded", func() {
			payload := []byte(`{"id":"s1"}`)
			convey.So(m.Save(ctx, info("s1", 100), payload), convey.ShouldBeNil)

			loaded, err := m.Load(ctx, "s1")

			convey.Convey("Then the payload round-trips", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(loaded, convey.ShouldResemble, payload)
			})

			convey.Convey("Then mutating the loaded copy does not touch the store", func() {
				loaded[0] = 'X'
				again, err := m.Load(ctx, "s1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldResemble, payload)
			})
		})

		convey.Convey("When a session is saved twice", func() {
			convey.So(m.Save(ctx, info("s1", 100), []byte("v1")), convey.ShouldBeNil)
			convey.So(m.Save(ctx, info("s1", 100), []byte("v2")), convey.ShouldBeNil)

			loaded, err := m.Load(ctx, "s1")
			infos, listErr := m.List(ctx)

			convey.Convey("Then the latest version wins without duplication", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(loaded), convey.ShouldEqual, "v2")
				convey.So(listErr, convey.ShouldBeNil)
				convey.So(len(infos), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When multiple sessions exist", func() {
			convey.So(m.Save(ctx, info("old", 100), []byte("a")), convey.ShouldBeNil)
			convey.So(m.Save(ctx, info("new", 300), []byte("b")), convey.ShouldBeNil)
			convey.So(m.Save(ctx, info("mid", 200), []byte("c")), convey.ShouldBeNil)

			infos, err := m.List(ctx)

			convey.Convey("Then the listing is newest first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(infos), convey.ShouldEqual, 3)
				convey.So(infos[0].ID, convey.ShouldEqual, "new")
				convey.So(infos[1].ID, convey.ShouldEqual, "mid")
				convey.So(infos[2].ID, convey.ShouldEqual, "old")
			})
		})

		convey.Convey("When a session is deleted", func() {
			convey.So(m.Save(ctx, info("s1", 100), []byte("a")), convey.ShouldBeNil)
			convey.So(m.Delete(ctx, "s1"), convey.ShouldBeNil)

			convey.Convey("Then it is gone from load and list", func() {
				_, err := m.Load(ctx, "s1")
				convey.So(err, convey.ShouldWrap, store.ErrNotFound)
				infos, err := m.List(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(infos, convey.ShouldBeEmpty)
			})

			convey.Convey("Then deleting again reports not found", func() {
				convey.So(m.Delete(ctx, "s1"), convey.ShouldWrap, store.ErrNotFound)
			})
		})

		convey.Convey("When an unknown id is requested", func() {
			_, err := m.Load(ctx, "missing")
			convey.So(err, convey.ShouldWrap, store.ErrNotFound)
		})

		convey.Convey("When the store is closed", func() {
			convey.So(m.Close(), convey.ShouldBeNil)

			convey.Convey("Then every operation reports closed", func() {
				convey.So(m.Save(ctx, info("s1", 1), nil), convey.ShouldWrap, store.ErrClosed)
				_, err := m.Load(ctx, "s1")
				convey.So(err, convey.ShouldWrap, store.ErrClosed)
				_, err = m.List(ctx)
				convey.So(err, convey.ShouldWrap, store.ErrClosed)
				convey.So(m.Delete(ctx, "s1"), convey.ShouldWrap, store.ErrClosed)
			})
		})
	})
}
