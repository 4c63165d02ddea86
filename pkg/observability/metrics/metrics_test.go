package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWritePrometheus(t *testing.T) {
	ObserveBoard(3, 1, 2, 1)
	ObserveImport(nil)
	ObserveImport(errors.New("bad sheet"))

	rec := httptest.NewRecorder()
	WritePrometheus(rec)
	body := rec.Body.String()

	for _, line := range []string{
		"dock_planner_records 3\n",
		"dock_planner_records_incidents 1\n",
		"# TYPE dock_planner_imports_failed_total counter\n",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("missing %q in:\n%s", line, body)
		}
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}
