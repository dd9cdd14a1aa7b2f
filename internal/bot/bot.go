// Package bot serves the Telegram command surface: manual checks and
// keyword management.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amishk599/jobspot/internal/poller"
)

const (
	cmdCheck    = "check"
	cmdKeywords = "keywords"
	cmdHelp     = "help"
	cmdStart    = "start"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Scheduler serializes commands with check cycles.
type Scheduler interface {
	Trigger(ctx context.Context) (poller.Result, error)
	Exec(ctx context.Context, fn func(context.Context) error) error
}

// KeywordStore is the part of the store the bot edits. It is only touched
// from inside Scheduler.Exec.
type KeywordStore interface {
	AddKeyword(ctx context.Context, k string) (bool, error)
	RemoveKeyword(ctx context.Context, k string) (bool, error)
	Keywords() []string
}

// Bot answers chat commands.
type Bot struct {
	api     telegramAPI
	sched   Scheduler
	store   KeywordStore
	allowed map[int64]struct{}
	log     *slog.Logger
}

// New creates a Bot. Commands are accepted only from chats listed in
// allowedChats; an empty list accepts every chat.
func New(api telegramAPI, sched Scheduler, store KeywordStore, allowedChats []int64, log *slog.Logger) *Bot {
	allowed := make(map[int64]struct{}, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = struct{}{}
	}
	return &Bot{api: api, sched: sched, store: store, allowed: allowed, log: log}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot listening for commands")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() || msg.Chat == nil {
		return
	}
	if !b.isAllowed(msg.Chat.ID) {
		b.log.Warn("command from unknown chat", "chat_id", msg.Chat.ID, "cmd", msg.Command())
		b.reply(msg.Chat.ID, "Access denied.")
		return
	}
	b.handleCommand(ctx, msg)
}

func (b *Bot) isAllowed(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[chatID]
	return ok
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case cmdStart, cmdHelp:
		b.handleHelp(chatID)
	case cmdCheck:
		b.handleCheck(ctx, chatID)
	case cmdKeywords:
		b.handleKeywords(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/check - check all sources for new jobs now
/keywords add <keyword> - notify only for titles containing a keyword
/keywords delete <keyword> - remove a keyword
/keywords list - show active keywords`)
}

func (b *Bot) handleCheck(ctx context.Context, chatID int64) {
	res, err := b.sched.Trigger(ctx)
	if err != nil {
		b.log.Error("manual check failed", "chat_id", chatID, "error", err)
		b.reply(chatID, fmt.Sprintf("Check failed: %v", err))
		return
	}
	text := fmt.Sprintf("Successfully checked for new jobs! %d new, %d matched.", res.New, res.Matched)
	if res.Failed > 0 {
		text += fmt.Sprintf(" (%d sources failed)", res.Failed)
	}
	b.reply(chatID, text)
}

func (b *Bot) handleKeywords(ctx context.Context, chatID int64, args string) {
	sub, keyword, _ := strings.Cut(args, " ")
	keyword = strings.TrimSpace(keyword)

	switch strings.ToLower(sub) {
	case "add":
		if keyword == "" {
			b.reply(chatID, "Usage: /keywords add <keyword>")
			return
		}
		b.editKeyword(ctx, chatID, keyword, b.store.AddKeyword,
			"Added keyword: %s", "Keyword (%s) is already active!")
	case "delete", "remove":
		if keyword == "" {
			b.reply(chatID, "Usage: /keywords delete <keyword>")
			return
		}
		b.editKeyword(ctx, chatID, keyword, b.store.RemoveKeyword,
			"Deleted keyword: %s", "Keyword (%s) not found!")
	case "list", "":
		b.handleListKeywords(ctx, chatID)
	default:
		b.reply(chatID, "Usage: /keywords add|delete|list [keyword]")
	}
}

func (b *Bot) editKeyword(ctx context.Context, chatID int64, keyword string,
	edit func(context.Context, string) (bool, error), okFmt, missFmt string) {
	var changed bool
	err := b.sched.Exec(ctx, func(ctx context.Context) error {
		var err error
		changed, err = edit(ctx, keyword)
		return err
	})
	if err != nil {
		b.log.Error("keyword edit failed", "keyword", keyword, "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to update keywords: %v", err))
		return
	}
	if changed {
		b.reply(chatID, fmt.Sprintf(okFmt, keyword))
		return
	}
	b.reply(chatID, fmt.Sprintf(missFmt, keyword))
}

func (b *Bot) handleListKeywords(ctx context.Context, chatID int64) {
	var keywords []string
	err := b.sched.Exec(ctx, func(context.Context) error {
		keywords = b.store.Keywords()
		return nil
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to read keywords: %v", err))
		return
	}
	if len(keywords) == 0 {
		b.reply(chatID, "No active keywords!")
		return
	}
	var sb strings.Builder
	sb.WriteString("Active Keywords")
	for _, k := range keywords {
		sb.WriteString("\n- ")
		sb.WriteString(k)
	}
	b.reply(chatID, sb.String())
}
