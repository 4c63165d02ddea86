package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	recordsTotal       atomic.Int64
	recordsPending     atomic.Int64
	recordsAccepted    atomic.Int64
	recordsIncidents   atomic.Int64
	importsOK          atomic.Int64
	importsFailed      atomic.Int64
	remoteLoadsOK      atomic.Int64
	remoteLoadsFailed  atomic.Int64
	snapshotFailures   atomic.Int64
	eventPublishFailed atomic.Int64
)

// ObserveBoard stores the current board counters.
func ObserveBoard(total, pending, accepted, incidents int) {
	recordsTotal.Store(int64(total))
	recordsPending.Store(int64(pending))
	recordsAccepted.Store(int64(accepted))
	recordsIncidents.Store(int64(incidents))
}

func ObserveImport(err error) {
	if err != nil {
		importsFailed.Add(1)
		return
	}
	importsOK.Add(1)
}

func ObserveRemoteLoad(err error) {
	if err != nil {
		remoteLoadsFailed.Add(1)
		return
	}
	remoteLoadsOK.Add(1)
}

func SnapshotFailed() { snapshotFailures.Add(1) }

func EventPublishFailed() { eventPublishFailed.Add(1) }

type metric struct {
	name, help, kind string
	value            *atomic.Int64
}

var exposed = []metric{
	{"dock_planner_records", "Records on the board.", "gauge", &recordsTotal},
	{"dock_planner_records_pending", "Records waiting to be accepted.", "gauge", &recordsPending},
	{"dock_planner_records_accepted", "Accepted records.", "gauge", &recordsAccepted},
	{"dock_planner_records_incidents", "Records whose dock is flagged with an incident.", "gauge", &recordsIncidents},
	{"dock_planner_imports_total", "Table and document imports applied.", "counter", &importsOK},
	{"dock_planner_imports_failed_total", "Imports rejected before touching the board.", "counter", &importsFailed},
	{"dock_planner_remote_loads_total", "Remote documents applied.", "counter", &remoteLoadsOK},
	{"dock_planner_remote_loads_failed_total", "Remote loads that failed.", "counter", &remoteLoadsFailed},
	{"dock_planner_snapshot_failures_total", "Snapshot saves that failed.", "counter", &snapshotFailures},
	{"dock_planner_event_publish_failures_total", "Change events that could not be published.", "counter", &eventPublishFailed},
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeText(w)
}

func writeText(w io.Writer) {
	for _, m := range exposed {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %d\n", m.name, m.value.Load())
	}
}
