package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/muelle-planner/platform/pkg/codec"
	"github.com/muelle-planner/platform/pkg/dock"
	"github.com/muelle-planner/platform/pkg/ingestion"
	"github.com/muelle-planner/platform/pkg/remote"
	"github.com/muelle-planner/platform/pkg/schema"
)

func newTestRouter(svc *Service) *mux.Router {
	router := mux.NewRouter()
	NewHTTPHandler(svc, 1<<20).Register(router.PathPrefix("/api/v1").Subrouter())
	return router
}

func do(t *testing.T, router http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHTTPRecordLifecycle(t *testing.T) {
	router := newTestRouter(newTestService(Options{}))

	rr := do(t, router, http.MethodPost, "/api/v1/records", `{"carrier":"EWALS","destination":"PB-ZM","dock":"316"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var rec dock.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}

	if rr := do(t, router, http.MethodPost, "/api/v1/records", `{"carrier":"  "}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing carrier, got %d", rr.Code)
	}

	path := fmt.Sprintf("/api/v1/records/%d", rec.ID)
	if rr := do(t, router, http.MethodPut, path, `{"carrier":"EWALS","destination":"MADRID"}`); rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rr.Code)
	}
	for i := 0; i < 2; i++ {
		if rr := do(t, router, http.MethodPost, path+"/accept", ""); rr.Code != http.StatusOK {
			t.Fatalf("accept #%d: expected 200, got %d", i, rr.Code)
		}
	}

	rr = do(t, router, http.MethodGet, path, "")
	json.Unmarshal(rr.Body.Bytes(), &rec)
	if rec.Destination != "MADRID" || rec.Status != dock.StatusAccepted {
		t.Fatalf("unexpected record %+v", rec)
	}

	if rr := do(t, router, http.MethodDelete, path, ""); rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("delete without confirm: expected 428, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodDelete, path+"?confirm=true", ""); rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/records/99/accept", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("accept unknown: expected 404, got %d", rr.Code)
	}
}

func TestHTTPViewFilters(t *testing.T) {
	svc := newTestService(Options{})
	router := newTestRouter(svc)
	do(t, router, http.MethodPost, "/api/v1/records", `{"carrier":"EWALS","destination":"PB"}`)
	do(t, router, http.MethodPost, "/api/v1/records", `{"carrier":"ACME","destination":"SEVILLA","dockStatus":"*"}`)
	do(t, router, http.MethodPost, "/api/v1/records/2/accept", "")

	rr := do(t, router, http.MethodGet, "/api/v1/records?status=ACCEPTED&q=acm", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("view: expected 200, got %d", rr.Code)
	}
	var view View
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Records) != 1 || view.Records[0].Carrier != "ACME" || view.Stats.Total != 2 || view.Stats.Incidents != 1 {
		t.Fatalf("unexpected view %+v", view)
	}

	if rr := do(t, router, http.MethodGet, "/api/v1/records?status=late", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown filter: expected 400, got %d", rr.Code)
	}
}

func TestHTTPVariantAndSchema(t *testing.T) {
	router := newTestRouter(newTestService(Options{}))

	if rr := do(t, router, http.MethodPut, "/api/v1/variant", `{"variant":"4"}`); rr.Code != http.StatusOK {
		t.Fatalf("set variant: expected 200, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodPut, "/api/v1/variant", `{"variant":"7"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown variant: expected 400, got %d", rr.Code)
	}
	rr := do(t, router, http.MethodGet, "/api/v1/variant", "")
	if !strings.Contains(rr.Body.String(), `"variant":"4"`) {
		t.Fatalf("unexpected variant body %s", rr.Body.String())
	}

	rr = do(t, router, http.MethodGet, "/api/v1/schema/2", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"REMOLQUE"`) {
		t.Fatalf("unexpected schema response %d %s", rr.Code, rr.Body.String())
	}
	if rr := do(t, router, http.MethodGet, "/api/v1/schema/9", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown schema: expected 404, got %d", rr.Code)
	}
}

func TestHTTPImportTableMultipart(t *testing.T) {
	svc := newTestService(Options{})
	router := newTestRouter(svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "lado3.csv")
	part.Write([]byte("TRANSPORTISTA;MATRICULA;MUELLE;ESTADO;DESTINO;SALIDA;SALIDA TOPE\nEWALS;OV67BZ;316;;PB-ZM;2300;0500\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/table", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var summary ImportSummary
	json.Unmarshal(rr.Body.Bytes(), &summary)
	if summary.Variant != schema.Variant3 || summary.Imported != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestHTTPImportTableRaw(t *testing.T) {
	router := newTestRouter(newTestService(Options{}))

	if rr := do(t, router, http.MethodPost, "/api/v1/import/table", "TRANSPORTISTA,DESTINO\nEWALS,MADRID\n"); rr.Code != http.StatusBadRequest {
		t.Fatalf("raw upload without format: expected 400, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/import/table?format=csv", "TRANSPORTISTA,DESTINO\nEWALS,#REF!\n"); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("error cell: expected 422, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/import/table?format=ods", "x"); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unsupported format: expected 422, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/import/table?format=csv", "TRANSPORTISTA,DESTINO\nEWALS,MADRID\n"); rr.Code != http.StatusOK {
		t.Fatalf("raw csv: expected 200, got %d", rr.Code)
	}
}

func TestHTTPImportDocumentAndExport(t *testing.T) {
	router := newTestRouter(newTestService(Options{}))

	doc := `{"sideType":3,"fecha":"1/5/2024","trucks":[{"id":7,"carrier":"MARCOTRAN","destination":"PYSKO","dock":"326","dockStatus":"OK","status":"accepted"}]}`
	if rr := do(t, router, http.MethodPost, "/api/v1/import/document", doc); rr.Code != http.StatusOK {
		t.Fatalf("import document: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/import/document", `{"records":"nope"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed document: expected 422, got %d", rr.Code)
	}

	rr := do(t, router, http.MethodGet, "/api/v1/export/csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export csv: expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename=reunion-lado-3-2024-05-01.csv` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if !strings.Contains(rr.Body.String(), `"MARCOTRAN","","326","OK","PYSKO"`) {
		t.Fatalf("unexpected csv %q", rr.Body.String())
	}

	rr = do(t, router, http.MethodGet, "/api/v1/export/document", "")
	parsed, err := codec.DecodeDocument(rr.Body)
	if err != nil || parsed.Variant != schema.Variant3 || parsed.Records[0].ID != 7 {
		t.Fatalf("unexpected exported document %+v %v", parsed, err)
	}
}

func TestHTTPLoadAndArchive(t *testing.T) {
	failing := stubFetcher{err: &remote.RemoteLoadError{Locator: "https://x", Err: errors.New("status 500")}}
	router := newTestRouter(newTestService(Options{Remote: failing}))

	if rr := do(t, router, http.MethodPost, "/api/v1/load", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing url: expected 400, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/load", `{"url":"https://x"}`); rr.Code != http.StatusBadGateway {
		t.Fatalf("failing remote: expected 502, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodPost, "/api/v1/export/archive", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("archive disabled: expected 503, got %d", rr.Code)
	}

	dup := codec.Document{Records: []dock.Record{{ID: 3, Carrier: "A", Destination: "B"}, {ID: 3, Carrier: "C", Destination: "D"}}}
	router = newTestRouter(newTestService(Options{Remote: stubFetcher{doc: dup}}))
	if rr := do(t, router, http.MethodPost, "/api/v1/load", `{"url":"https://x"}`); rr.Code != http.StatusBadGateway {
		t.Fatalf("remote document with duplicate ids: expected 502, got %d", rr.Code)
	}

	router = newTestRouter(newTestService(Options{Archive: &stubArchiver{}}))
	if rr := do(t, router, http.MethodPost, "/api/v1/export/archive", ""); rr.Code != http.StatusCreated {
		t.Fatalf("archive: expected 201, got %d", rr.Code)
	}
}

func TestHTTPClearAndFormatTime(t *testing.T) {
	router := newTestRouter(newTestService(Options{}))
	do(t, router, http.MethodPost, "/api/v1/records", `{"carrier":"EWALS","destination":"PB"}`)

	if rr := do(t, router, http.MethodDelete, "/api/v1/records", ""); rr.Code != http.StatusPreconditionRequired {
		t.Fatalf("clear without confirm: expected 428, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodDelete, "/api/v1/records?confirm=true", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("clear: expected 204, got %d", rr.Code)
	}

	rr := do(t, router, http.MethodGet, "/api/v1/time/format?value=0830", "")
	if !strings.Contains(rr.Body.String(), `"formatted":"08:30"`) {
		t.Fatalf("unexpected time format %s", rr.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{dock.ErrDuplicateID, http.StatusUnprocessableEntity},
		{ingestion.ErrHeaderNotFound, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", schema.ErrUnknownVariant), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
