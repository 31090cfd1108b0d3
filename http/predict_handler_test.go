package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"heartform/ml"
)

func TestHandlePredict(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 1}, testStore)

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"sex":"Female","cp":9}`))
	req.Header.Set("X-Request-ID", "predict-1")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["label"].(float64) != 1 {
		t.Fatalf("unexpected label: %v", payload["label"])
	}
	if payload["display"] != "1" {
		t.Fatalf("unexpected display: %v", payload["display"])
	}
	if payload["request_id"] != "predict-1" {
		t.Fatalf("unexpected request id: %v", payload["request_id"])
	}
	defaulted, _ := payload["defaulted"].([]interface{})
	if len(defaulted) != 1 || defaulted[0] != string(ml.GroupChestPain) {
		t.Fatalf("expected chest pain to be defaulted, got %v", payload["defaulted"])
	}

	// recent prediction lookup
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predictions/predict-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected recent prediction, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predictions/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	// persisted history
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected history, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "predict-1") {
		t.Fatalf("history missing request: %s", w.Body.String())
	}
}

func TestHandlePredictBadRequest(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 1}, nil)
	bodies := []string{
		`{not json`,
		`{"chol":1000}`,
		`{"unknown_field":1}`,
		`{"cp":1} trailing garbage`,
		`{"cp":1}{"cp":2}`,
	}
	for _, body := range bodies {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestHandlePredictModelFailure(t *testing.T) {
	mux := newTestMux(t, &fakeModel{err: errors.New("shape (1, 18) does not match")}, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{}`)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["error"] != "prediction failed" || !strings.Contains(payload["details"], "shape") {
		t.Fatalf("unexpected error payload: %v", payload)
	}
}

func TestHistoryDisabled(t *testing.T) {
	mux := newTestMux(t, &fakeModel{}, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestFormPage(t *testing.T) {
	mux := newTestMux(t, &fakeModel{}, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Heart Disease Prediction", `name="trestbps"`, `value="120"`, "Thalassemia",
		`type="number" name="oldpeak"`, `step="0.1"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("form page missing %q", want)
		}
	}
}

func TestFormSubmitDisplaysLabel(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 1}, nil)
	form := url.Values{
		"sex": {"Male"}, "cp": {"1"}, "trestbps": {"120"}, "chol": {"240"}, "fbs": {"No"},
		"restecg": {"0"}, "thalach": {"150"}, "exang": {"No"}, "oldpeak": {"1.0"},
		"slope": {"0"}, "ca": {"0"}, "thal": {"0"},
	}
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Prediction (0: No Heart Disease, 1: Heart Disease): 1") {
		t.Fatalf("result line missing:\n%s", w.Body.String())
	}
}

func TestFormSubmitOutOfRange(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 1}, nil)
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("thalach=500"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "Prediction (0") {
		t.Fatal("no prediction should be shown for invalid input")
	}
}

func TestFormSubmitErrorKeepsSubmittedValues(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 1}, nil)
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("thalach=500&chol=300&sex=Female"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`name="thalach" min="71" max="202" step="1" value="500"`, `value="300"`, `<option value="Female" selected>`} {
		if !strings.Contains(body, want) {
			t.Fatalf("re-rendered form missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, `value="240"`) {
		t.Fatal("submitted cholesterol replaced by the default")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(nopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
