package clock_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/telestra/telestra/internal/replay/clock"
	"github.com/telestra/telestra/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestSimClock(t *testing.T) {
	convey.Convey("Given a simulated clock", t, func() {
		convey.Convey("When it runs for a few ticks", func() {
			c := clock.NewSimClock(clock.WithInterval(5 * time.Millisecond))
			var ticks atomic.Int64
			c.Subscribe(func(pos int64) { ticks.Add(1) })

			convey.So(c.Start(context.Background()), convey.ShouldBeNil)
			time.Sleep(60 * time.Millisecond)
			c.Stop()

			convey.Convey("Then the position advances monotonically with real time", func() {
				convey.So(ticks.Load(), convey.ShouldBeGreaterThan, 0)
				convey.So(c.Position(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When a limit is configured", func() {
			c := clock.NewSimClock(
				clock.WithInterval(5*time.Millisecond),
				clock.WithLimit(20),
			)
			convey.So(c.Start(context.Background()), convey.ShouldBeNil)

			convey.Convey("Then Done closes once the limit is reached", func() {
				select {
				case <-c.Done():
					convey.So(c.Position(), convey.ShouldBeGreaterThanOrEqualTo, 20)
				case <-time.After(2 * time.Second):
					convey.So("timed out waiting for clock limit", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When stopped before the limit", func() {
			c := clock.NewSimClock(
				clock.WithInterval(5*time.Millisecond),
				clock.WithLimit(10_000),
			)
			convey.So(c.Start(context.Background()), convey.ShouldBeNil)
			time.Sleep(20 * time.Millisecond)
			c.Stop()
			settled := c.Position()
			time.Sleep(30 * time.Millisecond)

			convey.Convey("Then the position freezes and Done stays open", func() {
				convey.So(c.Position(), convey.ShouldEqual, settled)
				select {
				case <-c.Done():
					convey.So("done should not be closed", convey.ShouldBeEmpty)
				default:
				}
			})
		})

		convey.Convey("When Start is called twice", func() {
			c := clock.NewSimClock(clock.WithInterval(5 * time.Millisecond))
			convey.So(c.Start(context.Background()), convey.ShouldBeNil)
			convey.So(c.Start(context.Background()), convey.ShouldBeNil)
			c.Stop()
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			c := clock.NewSimClock(clock.WithInterval(5 * time.Millisecond))
			convey.So(c.Start(ctx), convey.ShouldBeNil)
			time.Sleep(15 * time.Millisecond)
			cancel()
			time.Sleep(15 * time.Millisecond)
			settled := c.Position()
			time.Sleep(20 * time.Millisecond)

			convey.Convey("Then the run loop exits", func() {
				convey.So(c.Position(), convey.ShouldEqual, settled)
			})
		})
	})
}
