package fleet

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	Convey("A well-formed document with partial servo overrides loads with defaults filled in", t, func() {
		path := writeTempConfig(t, `{
			"schemaVersion": "1.0.0",
			"servos": [
				{"name": "shoulder"},
				{"name": "elbow", "maxVelocityRPM": 120, "canId": 17}
			]
		}`)

		cfg, err := LoadConfig(path)
		So(err, ShouldBeNil)
		So(cfg.Servos, ShouldHaveLength, 2)

		So(cfg.Servos[0].Name, ShouldEqual, "shoulder")
		So(cfg.Servos[0].MaxVelocityRPM, ShouldEqual, 60)
		So(cfg.Servos[0].CanID, ShouldEqual, uint32(0x10))
		So(cfg.Servos[0].CanInterface, ShouldEqual, "vcan0")

		So(cfg.Servos[1].Name, ShouldEqual, "elbow")
		So(cfg.Servos[1].MaxVelocityRPM, ShouldEqual, 120)
		So(cfg.Servos[1].CanID, ShouldEqual, uint32(17))
	})

	Convey("An explicit zero value is preserved, not treated as absent", t, func() {
		path := writeTempConfig(t, `{
			"schemaVersion": "1.0.0",
			"servos": [
				{"name": "base", "canId": 0, "maxControlSignal": 0}
			]
		}`)

		cfg, err := LoadConfig(path)
		So(err, ShouldBeNil)
		So(cfg.Servos, ShouldHaveLength, 1)
		So(cfg.Servos[0].CanID, ShouldEqual, uint32(0))
		So(cfg.Servos[0].MaxControlSignal, ShouldEqual, int32(0))
		// fields left out of the document still take their defaults.
		So(cfg.Servos[0].MaxVelocityRPM, ShouldEqual, 60)
		So(cfg.Servos[0].CanInterface, ShouldEqual, "vcan0")
	})

	Convey("A missing schemaVersion is rejected", t, func() {
		path := writeTempConfig(t, `{"servos": [{"name": "a"}]}`)
		_, err := LoadConfig(path)
		So(err, ShouldHaveSameTypeAs, SchemaVersionError{})
	})

	Convey("An unsupported schemaVersion is rejected", t, func() {
		path := writeTempConfig(t, `{"schemaVersion": "2.0.0", "servos": [{"name": "a"}]}`)
		_, err := LoadConfig(path)
		So(err, ShouldHaveSameTypeAs, SchemaVersionError{})
	})

	Convey("A missing file surfaces as a wrapped read error", t, func() {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
		So(err, ShouldNotBeNil)
	})

	Convey("Malformed JSON surfaces as a wrapped parse error", t, func() {
		path := writeTempConfig(t, `{not json`)
		_, err := LoadConfig(path)
		So(err, ShouldNotBeNil)
	})
}

func TestSaveConfigRoundTrip(t *testing.T) {
	Convey("Saving and reloading a config preserves servo definitions", t, func() {
		cfg := FleetConfig{
			SchemaVersion: "1.0.0",
			Servos: []ServoConfig{
				DefaultServoConfig(),
			},
		}
		cfg.Servos[0].Name = "wrist"
		cfg.Servos[0].CanID = 0x20

		path := filepath.Join(t.TempDir(), "out.json")
		So(SaveConfig(cfg, path), ShouldBeNil)

		reloaded, err := LoadConfig(path)
		So(err, ShouldBeNil)
		So(reloaded.Servos, ShouldHaveLength, 1)
		So(reloaded.Servos[0].Name, ShouldEqual, "wrist")
		So(reloaded.Servos[0].CanID, ShouldEqual, uint32(0x20))
	})
}
