package config_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/virtualmirror/kinescreen/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.DBPath, convey.ShouldEqual, "kinescreen.db")
			convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.MaxSessionList, convey.ShouldEqual, 100)
			convey.So(cfg.RetentionHours, convey.ShouldEqual, 24)
			convey.So(cfg.MaintenanceIntervalMinutes, convey.ShouldEqual, 60)
		})
	})
}
