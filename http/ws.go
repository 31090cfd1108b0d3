package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartform/ml"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsReply 每条客户端消息对应一条回复
type wsReply struct {
	ID     string           `json:"id,omitempty"`
	Result *predictResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type wsRequest struct {
	ID     string            `json:"id"`
	Inputs ml.ClinicalInputs `json:"inputs"`
}

// handleWebSocket 处理WebSocket预测：客户端每发送一组输入，服务端回复一次预测
func (h *Handlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// 清除服务器设置的读写截止时间
	conn.SetReadDeadline(time.Time{})
	connID := requestID(r)
	h.logger.Info("websocket connected", zap.String("conn_id", connID))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("conn_id", connID), zap.Error(err))
			}
			return
		}

		reply := h.handleWSMessage(context.Background(), payload)
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("websocket write error", zap.String("conn_id", connID), zap.Error(err))
			return
		}
	}
}

func (h *Handlers) handleWSMessage(ctx context.Context, payload []byte) wsReply {
	req := wsRequest{Inputs: ml.DefaultInputs()}
	if err := json.Unmarshal(payload, &req); err != nil {
		return wsReply{Error: "invalid request: " + err.Error()}
	}
	if err := ml.CheckRanges(req.Inputs); err != nil {
		return wsReply{ID: req.ID, Error: "invalid request: " + err.Error()}
	}
	// 客户端ID只用于关联回复，记录使用服务端生成的ID
	resp, err := h.predict(ctx, uuid.NewString(), req.Inputs)
	if err != nil {
		return wsReply{ID: req.ID, Error: "prediction failed: " + err.Error()}
	}
	return wsReply{ID: req.ID, Result: &resp}
}
