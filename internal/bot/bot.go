package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/service"
	"github.com/xaenox/threadpress/internal/storage"
)

// maxMessageLength stays below Telegram's 4096 character limit.
const maxMessageLength = 4000

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot exposes threads over Telegram. Every chat writes into one bound thread.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   sender
	threads  *service.ThreadService
	articles *service.ArticleService
	slides   *service.SlideService
	bindings storage.BindingStorage
	logger   *zap.Logger

	chatLocks sync.Map
	handlers  sync.WaitGroup
}

type Services struct {
	Threads  *service.ThreadService
	Articles *service.ArticleService
	Slides   *service.SlideService
	Bindings storage.BindingStorage
}

func New(token string, services Services, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b := newBot(api, services, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, services Services, logger *zap.Logger) *Bot {
	return &Bot{
		sender:   s,
		threads:  services.Threads,
		articles: services.Articles,
		slides:   services.Slides,
		bindings: services.Bindings,
		logger:   logger,
	}
}

// Start polls for updates until ctx is cancelled, then waits for in-flight
// handlers.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.handlers.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.handlers.Wait()
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handlers.Add(1)
			go func(message *tgbotapi.Message) {
				defer b.handlers.Done()
				b.handleMessage(ctx, message)
			}(update.Message)
		}
	}
}

// lockChat serialises handling per chat so a chat never gets two threads.
func (b *Bot) lockChat(chatID int64) func() {
	v, _ := b.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		return
	}
	defer b.lockChat(message.Chat.ID)()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	threadID, err := b.boundThread(ctx, message.Chat.ID, content)
	if err != nil {
		b.logger.Error("Failed to resolve thread for chat",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "スレッドを準備できませんでした。もう一度お試しください。")
		return
	}

	if _, err := b.threads.SaveMessage(ctx, threadID, models.RoleUser, content); err != nil {
		b.logger.Error("Failed to save message",
			zap.Error(err),
			zap.String("thread_id", threadID),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "メッセージを保存できませんでした。もう一度お試しください。")
		return
	}

	reply, err := b.threads.GenerateAIResponse(ctx, threadID)
	if err != nil {
		b.logger.Error("Failed to generate AI response",
			zap.Error(err),
			zap.String("thread_id", threadID))
		b.sendErrorMessage(message.Chat.ID, models.ErrGeneration.Error())
		return
	}
	b.sendLong(message.Chat.ID, reply.Content)
}

// boundThread returns the chat's thread, creating and binding one titled
// after content when the chat has none.
func (b *Bot) boundThread(ctx context.Context, chatID int64, content string) (string, error) {
	threadID, err := b.bindings.GetBinding(ctx, chatID)
	if err != nil {
		return "", err
	}
	if threadID != "" {
		return threadID, nil
	}

	title := b.threads.GenerateTitle(ctx, content)
	thread, err := b.bind(ctx, chatID, &title)
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (b *Bot) bind(ctx context.Context, chatID int64, title *string) (*models.Thread, error) {
	thread, err := b.threads.CreateThread(ctx, title)
	if err != nil {
		return nil, err
	}
	if err := b.bindings.SaveBinding(ctx, chatID, thread.ID); err != nil {
		return nil, err
	}
	b.logger.Info("Chat bound to thread",
		zap.Int64("chat_id", chatID),
		zap.String("thread_id", thread.ID))
	return thread, nil
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "new":
		b.handleNew(ctx, message)
	case "history":
		b.withThread(ctx, message, b.handleHistory)
	case "title":
		b.withThread(ctx, message, b.handleTitle)
	case "summary":
		b.withThread(ctx, message, b.handleSummary)
	case "article":
		b.withThread(ctx, message, b.handleArticle)
	case "slide":
		b.withThread(ctx, message, b.handleSlide)
	case "publish":
		b.withThread(ctx, message, b.handlePublish)
	default:
		b.sendMessage(message.Chat.ID, "不明なコマンドです。/help で使い方を確認できます。")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `ThreadPress へようこそ! 📝
メッセージを送るとAIが返信し、会話はスレッドとして保存されます。

会話から記事やスライドを作成し、Qiitaへ投稿することもできます。
/help でコマンド一覧を表示します。`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `利用できるコマンド:
/start - ボットを開始
/help - このヘルプを表示
/new [タイトル] - 新しいスレッドを開始
/history - 最近のメッセージを表示
/title - スレッドのタイトルを生成
/summary - スレッドを要約
/article - 会話から記事の下書きを作成
/slide - 会話からスライドを作成
/publish [タグ...] - 下書き記事をQiitaへ投稿`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleNew(ctx context.Context, message *tgbotapi.Message) {
	var title *string
	if args := strings.TrimSpace(message.CommandArguments()); args != "" {
		title = &args
	}
	thread, err := b.bind(ctx, message.Chat.ID, title)
	if err != nil {
		b.logger.Error("Failed to start thread",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "スレッドを作成できませんでした。")
		return
	}
	b.sendMessage(message.Chat.ID, "新しいスレッドを開始しました: "+thread.DisplayTitle(service.DefaultThreadTitle))
}

// withThread runs fn against the chat's bound thread, if there is one.
func (b *Bot) withThread(ctx context.Context, message *tgbotapi.Message, fn func(context.Context, *tgbotapi.Message, string)) {
	threadID, err := b.bindings.GetBinding(ctx, message.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to load chat binding",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "スレッドを読み込めませんでした。")
		return
	}
	if threadID == "" {
		b.sendMessage(message.Chat.ID, "まだスレッドがありません。メッセージを送るか /new で開始してください。")
		return
	}
	fn(ctx, message, threadID)
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message, threadID string) {
	messages, err := b.threads.ListMessages(ctx, threadID)
	if err != nil {
		b.logger.Error("Failed to get thread messages",
			zap.Error(err),
			zap.String("thread_id", threadID))
		b.sendErrorMessage(message.Chat.ID, "履歴を取得できませんでした。")
		return
	}
	if len(messages) == 0 {
		b.sendMessage(message.Chat.ID, "まだメッセージがありません。")
		return
	}

	b.sendMarkdown(message.Chat.ID, formatHistory(messages, 5))
}

func formatHistory(messages []models.Message, limit int) string {
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	var sb strings.Builder
	sb.WriteString("*最近のメッセージ:*\n\n")
	for _, msg := range messages {
		content := []rune(msg.Content)
		if len(content) > 200 {
			content = append(content[:200], '…')
		}
		fmt.Fprintf(&sb, "*%s*\n%s\n\n", escapeMarkdown(string(msg.Role)), escapeMarkdown(string(content)))
	}
	return sb.String()
}

func (b *Bot) handleTitle(ctx context.Context, message *tgbotapi.Message, threadID string) {
	messages, err := b.threads.ListMessages(ctx, threadID)
	if err != nil || len(messages) == 0 {
		b.sendMessage(message.Chat.ID, "タイトルを付けるメッセージがありません。")
		return
	}
	title := b.threads.GenerateTitle(ctx, messages[0].Content)
	if _, err := b.threads.UpdateThread(ctx, threadID, &title); err != nil {
		b.logger.Error("Failed to update thread title",
			zap.Error(err),
			zap.String("thread_id", threadID))
		b.sendErrorMessage(message.Chat.ID, "タイトルを更新できませんでした。")
		return
	}
	b.sendMessage(message.Chat.ID, "タイトル: "+title)
}

func (b *Bot) handleSummary(ctx context.Context, message *tgbotapi.Message, threadID string) {
	summary, err := b.threads.GenerateSummary(ctx, threadID)
	if err != nil {
		b.reportGenerationError(message.Chat.ID, threadID, "summary", err)
		return
	}
	b.sendLong(message.Chat.ID, summary.Content)
}

func (b *Bot) handleArticle(ctx context.Context, message *tgbotapi.Message, threadID string) {
	article, err := b.articles.GenerateArticle(ctx, threadID)
	if err != nil {
		b.reportGenerationError(message.Chat.ID, threadID, "article", err)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("記事の下書きを保存しました: %s\nID: %s\n/publish でQiitaへ投稿できます。", article.Title, article.ID))
}

func (b *Bot) handleSlide(ctx context.Context, message *tgbotapi.Message, threadID string) {
	slide, err := b.slides.GenerateFromThread(ctx, threadID)
	if err != nil {
		b.reportGenerationError(message.Chat.ID, threadID, "slide", err)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("スライドを作成しました: %s\nID: %s", slide.Title, slide.ID))
}

func (b *Bot) handlePublish(ctx context.Context, message *tgbotapi.Message, threadID string) {
	articles, err := b.articles.ListByThread(ctx, threadID)
	if err != nil {
		b.logger.Error("Failed to list thread articles",
			zap.Error(err),
			zap.String("thread_id", threadID))
		b.sendErrorMessage(message.Chat.ID, "記事を取得できませんでした。")
		return
	}

	var draft *models.Article
	for i := range articles {
		if articles[i].Status == models.ArticleDraft {
			draft = &articles[i]
			break
		}
	}
	if draft == nil {
		b.sendMessage(message.Chat.ID, "下書き記事がありません。先に /article を実行してください。")
		return
	}

	result, err := b.articles.PostToQiita(ctx, draft.ID, strings.Fields(message.CommandArguments()))
	if err != nil {
		b.logger.Error("Failed to publish article",
			zap.Error(err),
			zap.String("article_id", draft.ID))
		msg := "Qiitaへの投稿に失敗しました。"
		if errors.Is(err, models.ErrConfiguration) {
			msg = "Qiitaのアクセストークンが設定されていません。"
		}
		b.sendErrorMessage(message.Chat.ID, msg)
		return
	}
	b.sendMessage(message.Chat.ID, "Qiitaに投稿しました: "+result.URL)
}

func (b *Bot) reportGenerationError(chatID int64, threadID, task string, err error) {
	b.logger.Error("Generation failed",
		zap.Error(err),
		zap.String("task", task),
		zap.String("thread_id", threadID))
	if errors.Is(err, models.ErrValidation) {
		b.sendMessage(chatID, "スレッドにまだメッセージがありません。")
		return
	}
	b.sendErrorMessage(chatID, models.ErrGeneration.Error())
}

// escapeMarkdown escapes special characters for MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

// splitMessage cuts text into chunks Telegram accepts, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func (b *Bot) sendLong(chatID int64, text string) {
	for _, chunk := range splitMessage(text, maxMessageLength) {
		b.sendMessage(chatID, chunk)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send markdown message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
