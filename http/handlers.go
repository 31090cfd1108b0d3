package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"heartform/db"
	"heartform/ml"
	"heartform/monitoring"
)

// Handlers 持有一次预测所需的全部依赖。Predictor 在启动时构建后不再改变。
type Handlers struct {
	predictor *ml.Predictor
	logger    *zap.Logger
	metrics   *monitoring.MetricsCollector
	recent    *lru.Cache[string, db.PredictionRecord]
	store     *db.Store
}

// Options 可选依赖
type Options struct {
	Metrics    *monitoring.MetricsCollector
	Store      *db.Store
	RecentSize int
}

// NewHandlers 创建处理器
func NewHandlers(predictor *ml.Predictor, logger *zap.Logger, opts Options) (*Handlers, error) {
	if predictor == nil {
		return nil, ml.ErrModelNotLoaded
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.RecentSize
	if size <= 0 {
		size = 256
	}
	recent, err := lru.New[string, db.PredictionRecord](size)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		predictor: predictor,
		logger:    logger,
		metrics:   opts.Metrics,
		recent:    recent,
		store:     opts.Store,
	}, nil
}

// Register 注册所有路由
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /predict", h.handleFormSubmit)

	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("POST /api/encode", h.handleEncode)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/predictions/{id}", h.handlePrediction)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/ws/predict", h.handleWebSocket)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

type predictResponse struct {
	RequestID string           `json:"request_id"`
	Label     int              `json:"label"`
	Display   string           `json:"display"`
	Vector    ml.FeatureVector `json:"vector"`
	Defaulted []ml.Group       `json:"defaulted,omitempty"`
}

type encodeResponse struct {
	Vector       ml.FeatureVector `json:"vector"`
	Defaulted    []ml.Group       `json:"defaulted,omitempty"`
	FeatureNames []string         `json:"feature_names"`
}

// predict 执行完整流程：编码 -> 推理 -> 记录。任何推理错误都直接返回，不重试。
func (h *Handlers) predict(ctx context.Context, requestID string, in ml.ClinicalInputs) (predictResponse, error) {
	enc := ml.Encode(in)
	h.metrics.RecordEncoding(enc)
	if len(enc.Defaulted) > 0 {
		h.logger.Warn("categorical inputs outside domain were dropped",
			zap.String("request_id", requestID),
			zap.Any("groups", enc.Defaulted))
	}

	start := time.Now()
	label, err := h.predictor.Predict(ctx, enc.Vector)
	h.metrics.RecordPrediction(label, time.Since(start), err)
	if err != nil {
		h.logger.Error("prediction failed", zap.String("request_id", requestID), zap.Error(err))
		return predictResponse{}, err
	}

	record := db.PredictionRecord{
		RequestID: requestID,
		Label:     label,
		Vector:    enc.Vector,
		Defaulted: enc.Defaulted,
		ModelType: h.predictor.ModelType(),
		CreatedAt: time.Now().UTC(),
	}
	h.recent.Add(requestID, record)
	if h.store != nil {
		if err := h.store.SavePrediction(record); err != nil {
			h.logger.Error("save prediction history", zap.String("request_id", requestID), zap.Error(err))
		}
	}

	return predictResponse{
		RequestID: requestID,
		Label:     label,
		Display:   ml.FormatLabel(label),
		Vector:    enc.Vector,
		Defaulted: enc.Defaulted,
	}, nil
}

func requestID(r *http.Request) string {
	if id := GetRequestID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"model_type": h.predictor.ModelType(),
	})
}

func (h *Handlers) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fields":        ml.FormFields(),
		"feature_names": ml.FeatureNames(),
	})
}

func (h *Handlers) handleEncode(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInputs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	enc := ml.Encode(in)
	h.metrics.RecordEncoding(enc)
	writeJSON(w, http.StatusOK, encodeResponse{
		Vector:       enc.Vector,
		Defaulted:    enc.Defaulted,
		FeatureNames: ml.FeatureNames(),
	})
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInputs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	resp, err := h.predict(r.Context(), requestID(r), in)
	if err != nil {
		writeError(w, predictStatus(err), "prediction failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handlePrediction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, ok := h.recent.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "prediction not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history disabled", nil)
		return
	}
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	records, err := h.store.RecentPredictions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history query failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}

var errTrailingData = errors.New("request body must contain a single JSON object")

// decodeInputs 解析JSON请求体；缺失字段使用表单默认值
func decodeInputs(r *http.Request) (ml.ClinicalInputs, error) {
	in := ml.DefaultInputs()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&in); err != nil {
		return ml.ClinicalInputs{}, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return ml.ClinicalInputs{}, errTrailingData
	}
	if err := ml.CheckRanges(in); err != nil {
		return ml.ClinicalInputs{}, err
	}
	return in, nil
}

func predictStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	writeJSON(w, status, body)
}
