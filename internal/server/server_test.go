package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"invoicer/internal/extract"
	"invoicer/internal/invoice"
	"invoicer/internal/render"
	"invoicer/pkg/models"
)

const cafeNord = `{
  "store_name": "Café Nord",
  "date": "12/03/2025",
  "vat_rate": 20,
  "line_items": [
    {"name": "Espresso", "quantity": 2, "unit_price_incl_vat": 2.10},
    {"name": "Croissant", "quantity": 2, "unit_price_incl_vat": 1.30}
  ]
}`

type stubExtractor struct {
	rec *models.InvoiceRecord
	err error
}

func (s stubExtractor) Extract(ctx context.Context, img extract.Image) (*models.InvoiceRecord, error) {
	return s.rec, s.err
}

func newTestServer(t *testing.T, ex extract.Extractor) http.Handler {
	t.Helper()
	engine := render.NewEngine(render.Options{
		DisableUnicode: true,
		CreationDate:   time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
	})
	return New(engine, Options{Extractor: ex, MaxUploadBytes: 1 << 20}).Handler()
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "ticket.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestRenderEndpoint(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/render?number=202503-0042", strings.NewReader(cafeNord))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="facture-202503-0042.pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rr.Header().Get(invoiceNumberHeader); got != "202503-0042" {
		t.Errorf("%s = %q, want 202503-0042", invoiceNumberHeader, got)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}
	if rr.Header().Get(requestIDHeader) == "" {
		t.Error("missing request ID header")
	}
}

func TestRenderEndpointGeneratesNumber(t *testing.T) {
	h := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/invoices/render", strings.NewReader(cafeNord)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if number := rr.Header().Get(invoiceNumberHeader); !invoice.ValidNumber(number) {
		t.Errorf("generated number %q is not valid", number)
	}
}

func TestRenderEndpointErrors(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		body      string
		want      int
		wantField string
	}{
		{"missing line items", "/api/invoices/render", `{"store_name": "Café Nord"}`, http.StatusUnprocessableEntity, "line_items"},
		{"unnamed item", "/api/invoices/render", `{"line_items": [{"quantity": 1}]}`, http.StatusUnprocessableEntity, "line_items[0].name"},
		{"not json", "/api/invoices/render", `merci de votre visite`, http.StatusUnprocessableEntity, "$"},
		{"bad number", "/api/invoices/render?number=42", cafeNord, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, nil)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tt.url, strings.NewReader(tt.body)))

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if resp.Error == "" || resp.Field != tt.wantField {
				t.Errorf("response = %+v, want field %q", resp, tt.wantField)
			}
		})
	}
}

func TestScanEndpoint(t *testing.T) {
	rec, err := invoice.ParseRecord([]byte(cafeNord))
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	h := newTestServer(t, stubExtractor{rec: rec})

	body, contentType := multipartBody(t, "receipt", []byte("fake image"))
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/scan", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("6,80 EUR")) {
		t.Error("PDF does not show the total 6,80 EUR")
	}
}

func TestScanEndpointErrors(t *testing.T) {
	tests := []struct {
		name  string
		ex    extract.Extractor
		field string
		want  int
	}{
		{"no extractor", nil, "receipt", http.StatusServiceUnavailable},
		{"missing file", stubExtractor{}, "photo", http.StatusBadRequest},
		{"structural", stubExtractor{err: invoice.NewStructuralInputError("line_items", invoice.ErrMissingLineItems, "")}, "receipt", http.StatusUnprocessableEntity},
		{"unsupported image", stubExtractor{err: extract.NewExtractionError("PrepareImage", extract.ErrUnsupportedImage, "")}, "receipt", http.StatusUnsupportedMediaType},
		{"model failure", stubExtractor{err: extract.ErrExtractionFailed}, "receipt", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.ex)

			body, contentType := multipartBody(t, tt.field, []byte("fake image"))
			req := httptest.NewRequest(http.MethodPost, "/api/invoices/scan", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestIndexAndHealth(t *testing.T) {
	h := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "/api/invoices/render") {
		t.Errorf("index status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"scan_enabled":false`) {
		t.Errorf("healthz = %d %s", rr.Code, rr.Body.String())
	}
}

func TestRequestIDIsKept(t *testing.T) {
	h := newTestServer(t, nil)
	id := "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(requestIDHeader); got != id {
		t.Errorf("%s = %q, want %q", requestIDHeader, got, id)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/invoices/render", nil)
	req.Header.Set("Origin", "https://compta.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	l := zerolog.New(&logs)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req = req.WithContext(l.WithContext(req.Context()))
	rec := httptest.NewRecorder()

	writeJSON(rec, req, http.StatusOK, map[string]any{"status": make(chan int)})

	if !strings.Contains(logs.String(), "Failed to write JSON response") {
		t.Errorf("encode failure was not logged: %q", logs.String())
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRenderHugeExponentFallsBack(t *testing.T) {
	srv := newTestServer(t, nil)
	payload := `{"line_items":[{"name":"a","unit_price_incl_vat":1e999999999}]}`

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/invoices/render", strings.NewReader(payload)))
		done <- rec
	}()

	select {
	case rec := <-done:
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("render request did not finish")
	}
}
