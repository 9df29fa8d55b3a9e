package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/constants"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/export"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/extract"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/intake"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/pipeline"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// countingExtractor wraps an extractor and counts calls.
type countingExtractor struct {
	next  extract.TextExtractor
	calls atomic.Int32
}

func (c *countingExtractor) Extract(ctx context.Context, data []byte) (extract.TextExtractionResult, error) {
	c.calls.Add(1)
	return c.next.Extract(ctx, data)
}

// scriptedCompleter returns whatever respond produces for the prompt.
type scriptedCompleter struct {
	respond func(prompt string) (string, error)
	calls   atomic.Int32
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	return s.respond(prompt)
}

func fixed(out string) func(string) (string, error) {
	return func(string) (string, error) { return out, nil }
}

type fixture struct {
	srv       *httptest.Server
	extractor *countingExtractor
	completer *scriptedCompleter
}

func newFixture(t *testing.T, maxBytes int64, opts Options, respond func(string) (string, error)) *fixture {
	t.Helper()
	ex := &countingExtractor{next: extract.NewPDFExtractor(extract.Config{}, nil)}
	cp := &scriptedCompleter{respond: respond}
	proc := pipeline.NewProcessor(nil, pipeline.Config{StrictSchema: true}, ex, cp)
	s := New(nil, opts, intake.New(maxBytes, nil), proc, export.NewService(nil))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, extractor: ex, completer: cp}
}

func uploadBody(t *testing.T, field, filename, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func (f *fixture) postPDF(t *testing.T, filename, contentType string, data []byte) (*http.Response, []byte) {
	t.Helper()
	body, ct := uploadBody(t, constants.UploadFormField, filename, contentType, data)
	resp, err := http.Post(f.srv.URL+PathExtract, ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func errorMessage(t *testing.T, b []byte) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		t.Fatalf("error body %q: %v", b, err)
	}
	return body.Error
}

func TestExtract_RejectsBeforeExtraction(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
		wantMsg     string
	}{
		{"non pdf", "notes.txt", "text/plain", []byte("hello"), "Tipo de arquivo não suportado. Por favor, envie um PDF."},
		{"image", "scan.png", "image/png", []byte("\x89PNG"), "Tipo de arquivo não suportado. Por favor, envie um PDF."},
		{"zero bytes", "empty.pdf", "application/pdf", nil, "O arquivo PDF enviado está vazio."},
		{"oversized", "big.pdf", "application/pdf", bytes.Repeat([]byte("%"), 4096), "Arquivo excede o limite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1024, Options{}, fixed(llm.ExampleInvoiceJSON))
			resp, b := f.postPDF(t, tt.filename, tt.contentType, tt.data)

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", resp.StatusCode, b)
			}
			if msg := errorMessage(t, b); !strings.HasPrefix(msg, tt.wantMsg) {
				t.Errorf("error = %q, want prefix %q", msg, tt.wantMsg)
			}
			if n := f.extractor.calls.Load(); n != 0 {
				t.Errorf("extractor calls = %d, want 0", n)
			}
			if n := f.completer.calls.Load(); n != 0 {
				t.Errorf("completer calls = %d, want 0", n)
			}
		})
	}
}

func TestExtract_MissingFile(t *testing.T) {
	f := newFixture(t, 1024, Options{}, fixed(llm.ExampleInvoiceJSON))
	body, ct := uploadBody(t, "otherField", "fatura.pdf", "application/pdf", testutil.MinimalPDF("x"))
	resp, err := http.Post(f.srv.URL+PathExtract, ct, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := errorMessage(t, b); msg != "Nenhum arquivo PDF enviado." {
		t.Errorf("error = %q", msg)
	}
}

func TestExtract_EmptyTextSkipsService(t *testing.T) {
	f := newFixture(t, constants.MaxUploadBytes, Options{}, fixed(llm.ExampleInvoiceJSON))
	resp, b := f.postPDF(t, "blank.pdf", "application/pdf", testutil.MinimalPDF())

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (%s)", resp.StatusCode, b)
	}
	if msg := errorMessage(t, b); !strings.Contains(msg, "Não foi possível extrair texto") {
		t.Errorf("error = %q", msg)
	}
	if n := f.extractor.calls.Load(); n != 1 {
		t.Errorf("extractor calls = %d, want 1", n)
	}
	if n := f.completer.calls.Load(); n != 0 {
		t.Errorf("completer calls = %d, want 0", n)
	}
}

func TestExtract_CorruptPDF(t *testing.T) {
	f := newFixture(t, constants.MaxUploadBytes, Options{}, fixed(llm.ExampleInvoiceJSON))
	resp, b := f.postPDF(t, "broken.pdf", "application/pdf", []byte("%PDF-1.4 truncated"))

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (%s)", resp.StatusCode, b)
	}
	if msg := errorMessage(t, b); msg != "Erro ao processar o arquivo PDF." {
		t.Errorf("error = %q", msg)
	}
	if n := f.completer.calls.Load(); n != 0 {
		t.Errorf("completer calls = %d, want 0", n)
	}
}

func TestExtract_Success(t *testing.T) {
	f := newFixture(t, constants.MaxUploadBytes, Options{}, fixed("```json\n"+llm.ExampleInvoiceJSON+"\n```"))
	resp, b := f.postPDF(t, "fatura.pdf", "application/pdf", testutil.MinimalPDF("FATURA INV-2023-001", "Total 1.500,75"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", resp.StatusCode, b)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content-type = %q", ct)
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Error("missing request id header")
	}

	var got, want any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if err := json.Unmarshal([]byte(llm.ExampleInvoiceJSON), &want); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("response mismatch:\n got  %v\n want %v", got, want)
	}
	if n := f.completer.calls.Load(); n != 1 {
		t.Errorf("completer calls = %d, want 1", n)
	}
}

func TestExtract_NonJSONCompletionThenRecovers(t *testing.T) {
	var out atomic.Value
	out.Store("not json at all")
	f := newFixture(t, constants.MaxUploadBytes, Options{}, func(string) (string, error) {
		return out.Load().(string), nil
	})
	pdf := testutil.MinimalPDF("FATURA 1")

	resp, b := f.postPDF(t, "fatura.pdf", "application/pdf", pdf)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (%s)", resp.StatusCode, b)
	}
	if msg := errorMessage(t, b); msg == "" || strings.Contains(msg, "not json") {
		t.Errorf("error = %q", msg)
	}

	out.Store(llm.ExampleInvoiceJSON)
	resp, b = f.postPDF(t, "fatura.pdf", "application/pdf", pdf)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("follow-up status = %d, want 200 (%s)", resp.StatusCode, b)
	}
}

func TestExtract_ServiceError(t *testing.T) {
	f := newFixture(t, constants.MaxUploadBytes, Options{}, func(string) (string, error) {
		return "", &llm.ProviderError{Provider: "gemini", Status: 429, Reason: "RESOURCE_EXHAUSTED"}
	})
	resp, b := f.postPDF(t, "fatura.pdf", "application/pdf", testutil.MinimalPDF("FATURA 1"))

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if msg := errorMessage(t, b); !strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		t.Errorf("error = %q", msg)
	}
}

func TestExtract_PanicIsRecovered(t *testing.T) {
	var boom atomic.Bool
	boom.Store(true)
	f := newFixture(t, constants.MaxUploadBytes, Options{}, func(string) (string, error) {
		if boom.Load() {
			panic("completer exploded")
		}
		return llm.ExampleInvoiceJSON, nil
	})
	pdf := testutil.MinimalPDF("FATURA 1")

	resp, b := f.postPDF(t, "fatura.pdf", "application/pdf", pdf)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if msg := errorMessage(t, b); msg != msgInternal {
		t.Errorf("error = %q", msg)
	}

	boom.Store(false)
	if resp, _ := f.postPDF(t, "fatura.pdf", "application/pdf", pdf); resp.StatusCode != http.StatusOK {
		t.Fatalf("server did not keep serving: %d", resp.StatusCode)
	}
}

func TestExtract_ConcurrentRequestsAreIsolated(t *testing.T) {
	// echo the invoice number found in the prompt's text section
	f := newFixture(t, constants.MaxUploadBytes, Options{}, func(prompt string) (string, error) {
		_, text, _ := strings.Cut(prompt, "Texto da Fatura:\n")
		id := strings.TrimSpace(text)
		return fmt.Sprintf(`{"numero_fatura": %q, "itens": []}`, id), nil
	})

	const n = 16
	type upload struct {
		id   string
		body io.Reader
		ct   string
	}
	uploads := make([]upload, n)
	for i := range uploads {
		id := fmt.Sprintf("INV-%03d", i)
		body, ct := uploadBody(t, constants.UploadFormField, id+".pdf", "application/pdf", testutil.MinimalPDF(id))
		uploads[i] = upload{id: id, body: body, ct: ct}
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, u := range uploads {
		wg.Add(1)
		go func(id string, body io.Reader, ct string) {
			defer wg.Done()
			resp, err := http.Post(f.srv.URL+PathExtract, ct, body)
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			var inv llm.ExtractedInvoice
			if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
				errs <- err
				return
			}
			if resp.StatusCode != http.StatusOK || inv.InvoiceNumber == nil || *inv.InvoiceNumber != id {
				errs <- fmt.Errorf("request %s got status %d invoice %v", id, resp.StatusCode, inv.InvoiceNumber)
			}
		}(u.id, u.body, u.ct)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestExport_XLSX(t *testing.T) {
	f := newFixture(t, constants.MaxUploadBytes, Options{}, fixed(llm.ExampleInvoiceJSON))

	resp, err := http.Post(f.srv.URL+PathExport, "application/json", strings.NewReader(llm.ExampleInvoiceJSON))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.StatusCode, b)
	}
	if ct := resp.Header.Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("content-type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="fatura-INV-2023-001.xlsx"`) {
		t.Errorf("content-disposition = %q", cd)
	}
	x, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer x.Close()
	rows, err := x.GetRows(export.SheetItems)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("item rows = %d, want 3", len(rows))
	}
}

func TestExport_BadBody(t *testing.T) {
	f := newFixture(t, constants.MaxUploadBytes, Options{}, fixed(llm.ExampleInvoiceJSON))
	resp, err := http.Post(f.srv.URL+PathExport, "application/json", strings.NewReader(`{"valor_total": "abc"`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExportFilename(t *testing.T) {
	s := func(v string) *string { return &v }
	tests := []struct {
		in   *string
		want string
	}{
		{nil, "fatura.xlsx"},
		{s("INV-1"), "fatura-INV-1.xlsx"},
		{s("NF 12/2023"), "fatura-NF_12_2023.xlsx"},
		{s("///"), "fatura.xlsx"},
	}
	for _, tt := range tests {
		if got := exportFilename(llm.ExtractedInvoice{InvoiceNumber: tt.in}); got != tt.want {
			t.Errorf("exportFilename(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoutes(t *testing.T) {
	ui := fstest.MapFS{
		"index.html": {Data: []byte("<!doctype html><title>UI</title>")},
		"app.js":     {Data: []byte("console.log(1)")},
	}

	get := func(t *testing.T, srv *httptest.Server, path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	t.Run("health", func(t *testing.T) {
		f := newFixture(t, 0, Options{}, fixed(""))
		code, body := get(t, f.srv, PathHealth)
		if code != http.StatusOK || !strings.Contains(body, `"ok"`) {
			t.Errorf("health = %d %s", code, body)
		}
	})

	t.Run("unknown api route", func(t *testing.T) {
		f := newFixture(t, 0, Options{Production: true, UI: ui}, fixed(""))
		code, body := get(t, f.srv, "/api/nope")
		if code != http.StatusNotFound || !strings.Contains(body, `"error"`) {
			t.Errorf("got %d %s", code, body)
		}
	})

	t.Run("index and assets", func(t *testing.T) {
		f := newFixture(t, 0, Options{UI: ui}, fixed(""))
		if code, body := get(t, f.srv, "/"); code != http.StatusOK || !strings.Contains(body, "<title>UI</title>") {
			t.Errorf("/ = %d %s", code, body)
		}
		if code, body := get(t, f.srv, "/app.js"); code != http.StatusOK || body != "console.log(1)" {
			t.Errorf("/app.js = %d %s", code, body)
		}
	})

	t.Run("spa fallback in production", func(t *testing.T) {
		f := newFixture(t, 0, Options{Production: true, UI: ui}, fixed(""))
		if code, body := get(t, f.srv, "/faturas/123"); code != http.StatusOK || !strings.Contains(body, "<title>UI</title>") {
			t.Errorf("fallback = %d %s", code, body)
		}
	})

	t.Run("no fallback in development", func(t *testing.T) {
		f := newFixture(t, 0, Options{UI: ui}, fixed(""))
		if code, _ := get(t, f.srv, "/faturas/123"); code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", code)
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		f := newFixture(t, 0, Options{}, fixed(""))
		req, _ := http.NewRequest(http.MethodOptions, f.srv.URL+PathExtract, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("preflight = %d %v", resp.StatusCode, resp.Header)
		}
	})

	t.Run("request id is echoed", func(t *testing.T) {
		f := newFixture(t, 0, Options{}, fixed(""))
		req, _ := http.NewRequest(http.MethodGet, f.srv.URL+PathHealth, nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if got := resp.Header.Get(HeaderRequestID); got != "abc-123" {
			t.Errorf("request id = %q", got)
		}
	})
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 1024, Options{RateLimit: common.RateLimitConfig{RPS: 0.001, Burst: 1}}, fixed(""))

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		body, ct := uploadBody(t, constants.UploadFormField, "a.txt", "text/plain", []byte("x"))
		resp, err := http.Post(f.srv.URL+PathExtract, ct, body)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != http.StatusBadRequest || statuses[1] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want [400 429]", statuses)
	}

	// health is outside the limited group
	resp, err := http.Get(f.srv.URL + PathHealth)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}
