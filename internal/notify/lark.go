package notify

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// LarkConfig holds Lark messenger configuration
type LarkConfig struct {
	AppID     string
	AppSecret string

	// ReceiveID is the chat or user the workflow notifies
	ReceiveID string

	// ReceiveIDType is "chat_id", "open_id" or "email"
	ReceiveIDType string
}

// LarkNotifier sends workflow notifications to a Lark chat
type LarkNotifier struct {
	client        *lark.Client
	receiveID     string
	receiveIDType string
	logger        *zap.Logger
}

// NewLarkNotifier creates a Lark-backed notifier
func NewLarkNotifier(cfg LarkConfig, logger *zap.Logger) *LarkNotifier {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	receiveIDType := cfg.ReceiveIDType
	if receiveIDType == "" {
		receiveIDType = "chat_id"
	}

	return &LarkNotifier{
		client:        client,
		receiveID:     cfg.ReceiveID,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// Show sends the notification as a text message. Delivery failures are logged
// and swallowed; a lost toast must not fail the transition that produced it.
func (n *LarkNotifier) Show(ctx context.Context, message string, severity Severity) {
	content, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf("[%s] %s", severity, message),
	})
	if err != nil {
		n.logger.Error("Failed to encode notification", zap.Error(err))
		return
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(n.receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.receiveID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("receive_id", n.receiveID),
			zap.Error(err))
		return
	}

	if !resp.Success() {
		n.logger.Error("Messenger API returned failure",
			zap.String("receive_id", n.receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return
	}

	n.logger.Info("Notification sent",
		zap.String("receive_id", n.receiveID),
		zap.String("severity", string(severity)))
}
