package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured 未配置访问令牌或号码ID
var ErrNotConfigured = errors.New("WhatsApp 通道未配置")

// Config 客户端配置
type Config struct {
	APIBase       string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// Client 只负责发送纯文本消息
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// SendText 发送文本消息，返回平台消息ID
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	if c.cfg.AccessToken == "" || c.cfg.PhoneNumberID == "" {
		return "", ErrNotConfigured
	}

	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
	}
	msg.Text.Body = body

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("序列化消息失败: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.cfg.APIBase, "/"), c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var result sendResponse
	_ = json.Unmarshal(data, &result)

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil && result.Error.Message != "" {
			return "", fmt.Errorf("WhatsApp 返回错误状态码 %d: %s", resp.StatusCode, result.Error.Message)
		}
		return "", fmt.Errorf("WhatsApp 返回错误状态码 %d: %s", resp.StatusCode, string(data))
	}
	if len(result.Messages) == 0 {
		return "", errors.New("WhatsApp 响应中没有消息ID")
	}
	return result.Messages[0].ID, nil
}
