package contentbot

import (
	"context"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// updateTimeout верхняя граница обработки одного обновления
const updateTimeout = 5 * time.Minute

// updateDispatcher запускает обработку каждого обновления в отдельной горутине.
// Контекст обработчика не отменяется при остановке приема обновлений, поэтому
// начатая оплата или доставка доводится до конца.
//
// Бот создается с WithNotAsyncHandlers: Dispatch вызывается синхронно из
// воркера бота, и Add происходит до того, как Start/StartWebhook вернут управление.
type updateDispatcher struct {
	handle  bot.HandlerFunc
	timeout time.Duration
	wg      sync.WaitGroup
}

func newUpdateDispatcher(handle bot.HandlerFunc, timeout time.Duration) *updateDispatcher {
	return &updateDispatcher{handle: handle, timeout: timeout}
}

func (d *updateDispatcher) Dispatch(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	d.wg.Add(1)
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	go func() {
		defer d.wg.Done()
		defer cancel()
		d.handle(hctx, b, update)
	}()
}

// Wait ждет завершения запущенных обработчиков, но не дольше ctx.
func (d *updateDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
