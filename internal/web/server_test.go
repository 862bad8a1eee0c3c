package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerview/ledgerview/internal/api"
	"github.com/ledgerview/ledgerview/internal/api/mocks"
	"github.com/ledgerview/ledgerview/internal/metrics"
	"github.com/ledgerview/ledgerview/internal/model"
	"github.com/ledgerview/ledgerview/internal/store"
	"github.com/ledgerview/ledgerview/internal/upload"
)

type fixture struct {
	svc     *mocks.MockService
	handler http.Handler
}

func newFixture(t *testing.T, maxBytes int64) *fixture {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	m := metrics.New()
	st := store.New(svc, store.Options{Metrics: m})
	up := upload.New(svc, upload.Options{MaxBytes: maxBytes, Store: st, Metrics: m})
	srv := New(Options{Store: st, Uploader: up, Metrics: m})
	return &fixture{svc: svc, handler: srv.Handler()}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadForm(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `enctype="multipart/form-data"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestUpload_SuccessRedirects(t *testing.T) {
	f := newFixture(t, 1<<20)
	f.svc.EXPECT().UploadCSV(gomock.Any(), "statement.csv", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, r io.Reader) (json.RawMessage, error) {
			b, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "1624507883, JOHN DOE, DEBIT, 250000, SUCCESS, restaurant\n", string(b))
			return json.RawMessage(`{}`), nil
		})

	rec := f.do(multipartRequest(t, "file", "statement.csv", "1624507883, JOHN DOE, DEBIT, 250000, SUCCESS, restaurant\n"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/transactions", rec.Header().Get("Location"))
}

func TestUpload_Failures(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		apiErr   error
		wantCode int
		wantText string
	}{
		{
			name:     "no file field",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "", "", "") },
			wantCode: http.StatusBadRequest,
			wantText: upload.MsgNoFile,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("a=b"))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			wantCode: http.StatusBadRequest,
			wantText: upload.MsgNoFile,
		},
		{
			name:     "wrong extension",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "statement.txt", "x") },
			wantCode: http.StatusBadRequest,
			wantText: upload.MsgNotCSV,
		},
		{
			name:     "api error",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "statement.csv", "x") },
			apiErr:   &api.Error{Op: api.OpUpload, StatusCode: 400, Message: "invalid csv format"},
			wantCode: http.StatusBadGateway,
			wantText: "invalid csv format",
		},
		{
			name:     "api unreachable",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "file", "statement.csv", "x") },
			apiErr:   errors.New("upload: connection refused"),
			wantCode: http.StatusBadGateway,
			wantText: "upload: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1<<20)
			if tt.apiErr != nil {
				f.svc.EXPECT().UploadCSV(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.apiErr)
			}

			rec := f.do(tt.req(t))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `<p class="text-error">`+tt.wantText+`</p>`)
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	f := newFixture(t, 10)
	big := strings.Repeat("x", multipartOverhead+100)

	rec := f.do(multipartRequest(t, "file", "big.csv", big))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), upload.TooLarge(10))
}

func TestUpload_FileOverLimitButWithinOverhead(t *testing.T) {
	f := newFixture(t, 10)

	rec := f.do(multipartRequest(t, "file", "small.csv", "0123456789ABC"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), upload.TooLarge(10))
}

func TestTransactionsPage(t *testing.T) {
	f := newFixture(t, 0)
	f.svc.EXPECT().GetBalance(gomock.Any()).Return(model.Balance{Balance: decimal.NewFromInt(42000)}, nil)
	f.svc.EXPECT().GetIssues(gomock.Any()).Return([]model.Transaction{
		{Name: "E-COMMERCE A", Timestamp: 1624608050, Type: model.TypeDebit, Amount: decimal.NewFromInt(150000), Status: model.StatusFailed},
	}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/transactions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Rp\u00a042.000")
	assert.Contains(t, body, "E-COMMERCE A")
	assert.Contains(t, body, "- Rp\u00a0150.000")
}

func TestTransactionsPage_SectionErrorStillOK(t *testing.T) {
	f := newFixture(t, 0)
	f.svc.EXPECT().GetBalance(gomock.Any()).Return(model.Balance{}, &api.Error{Op: api.OpBalance, StatusCode: 500, Message: api.UnknownErrorMessage})
	f.svc.EXPECT().GetIssues(gomock.Any()).Return([]model.Transaction{}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/transactions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<p class="text-error">Unknown error</p>`)
	assert.Contains(t, rec.Body.String(), "No issues")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouting(t *testing.T) {
	f := newFixture(t, 0)

	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodGet, "/nope", nil)).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(httptest.NewRequest(http.MethodGet, "/upload", nil)).Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
