package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const sinkRequestTimeout = 10 * time.Second

// BotAPISink - доставка через HTTP-шлюз чат-бота: POST с JSON-телом
// {user_id, text} на единственный эндпоинт шлюза.
type BotAPISink struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewBotAPISink создает новый экземпляр доставки через шлюз бота.
func NewBotAPISink(baseURL, token string) *BotAPISink {
	return &BotAPISink{
		client:  &http.Client{Timeout: sinkRequestTimeout},
		baseURL: baseURL,
		token:   token,
	}
}

// Send отправляет одно уведомление. Не-2xx ответ шлюза считается ошибкой доставки.
func (s *BotAPISink) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ошибка сериализации уведомления: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса к шлюзу: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса к шлюзу доставки: %w", err)
	}
	defer func() {
		// Дочитываем тело, чтобы соединение вернулось в пул
		_, _ = io.Copy(io.Discard, resp.Body)
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("[BotAPISink] Ошибка закрытия тела ответа: %v", closeErr)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("шлюз доставки вернул статус %d", resp.StatusCode)
	}
	return nil
}
