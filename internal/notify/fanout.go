// Package notify - рассылка уведомлений подписчикам при публикации новой
// версии документа. Доставка работает по принципу "отправил и забыл":
// движок только ставит сообщения в очередь ограниченного пула воркеров,
// отказ доставки отдельному подписчику логируется и не влияет на остальных.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/docshub/server/internal/models"
)

// Message - одно уведомление одному подписчику.
type Message struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// DeliverySink - внешний канал доставки (шлюз бота, очередь сообщений).
// Повторные попытки, если они нужны, - ответственность самого канала.
type DeliverySink interface {
	Send(ctx context.Context, msg Message) error
}

// SubscriberSource отдает множество получателей рассылки по узлу
// (прямые подписчики плюс подписчики предков, без дубликатов).
type SubscriberSource interface {
	SubscribersForFanout(ctx context.Context, nodeID int64) ([]int64, error)
}

// Fanout - пул воркеров рассылки. Постановка в очередь не блокирует
// публикующий запрос: при переполненной очереди сообщение отбрасывается
// с записью в лог (семантика "не более одного раза").
type Fanout struct {
	source SubscriberSource
	sink   DeliverySink
	queue  chan Message

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewFanout создает пул из workers воркеров с очередью на queueSize сообщений.
func NewFanout(source SubscriberSource, sink DeliverySink, workers, queueSize int) *Fanout {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1024
	}

	f := &Fanout{
		source: source,
		sink:   sink,
		queue:  make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		f.wg.Add(1)
		go f.worker()
	}

	log.Printf("[Fanout] Запущено %d воркеров рассылки (очередь: %d)", workers, queueSize)
	return f
}

// OnVersionPublished разрешает множество подписчиков и ставит по одному
// сообщению на каждого. Возвращает управление, не дожидаясь доставки;
// ctx действует только на этапе разрешения подписчиков - начатые доставки
// не отменяются.
func (f *Fanout) OnVersionPublished(ctx context.Context, node *models.Node, version *models.Version) {
	subscribers, err := f.source.SubscribersForFanout(ctx, node.ID)
	if err != nil {
		log.Printf("[Fanout] Ошибка разрешения подписчиков узла %d: %v", node.ID, err)
		return
	}
	if len(subscribers) == 0 {
		return
	}

	text := formatMessage(node.Title, version.Label)
	enqueued := 0
	for _, userID := range subscribers {
		select {
		case f.queue <- Message{UserID: userID, Text: text}:
			enqueued++
		default:
			log.Printf("[Fanout] Очередь переполнена, сообщение для пользователя %d отброшено", userID)
		}
	}

	log.Printf("[Fanout] Узел %d, версия '%s': поставлено %d из %d уведомлений",
		node.ID, version.Label, enqueued, len(subscribers))
}

// Close закрывает очередь и дожидается, пока воркеры доработают
// уже поставленные сообщения.
func (f *Fanout) Close() {
	f.closeOnce.Do(func() {
		close(f.queue)
	})
	f.wg.Wait()
}

func (f *Fanout) worker() {
	defer f.wg.Done()
	for msg := range f.queue {
		if err := f.sink.Send(context.Background(), msg); err != nil {
			log.Printf("[Fanout] Ошибка доставки пользователю %d: %v", msg.UserID, err)
		}
	}
}

// formatMessage собирает текст уведомления по заголовку узла и метке версии.
func formatMessage(title, label string) string {
	return fmt.Sprintf(
		"🔔 Обновление файлов!\n\n"+
			"Доступен новый документ: «%s» (версия %s).\n\n"+
			"Вы получили это сообщение, так как подписаны на этот раздел.",
		title, label)
}
