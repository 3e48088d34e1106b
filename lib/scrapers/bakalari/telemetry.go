package bakalari

import (
	"bakalari-backend/lib/restyutil"
	"bakalari-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("bakalari.lib.scrapers.bakalari")

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes clients created afterwards dump their
// full HTTP exchanges to the given output when debug logging is on.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
