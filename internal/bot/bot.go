// Package bot is the Telegram front end: command routing, manifest intake,
// live progress editing, and the upload sink feeding the transfer pipeline.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/coursegrab/internal/api"
	"github.com/ytget/coursegrab/internal/config"
	"github.com/ytget/coursegrab/internal/extract"
	"github.com/ytget/coursegrab/internal/job"
	"github.com/ytget/coursegrab/internal/logger"
	"github.com/ytget/coursegrab/internal/model"
	"github.com/ytget/coursegrab/internal/transfer"
)

// updateTimeout is the long-poll interval for Telegram updates.
const updateTimeout = 30

// manifestMimeType is the only document type accepted as a manifest.
const manifestMimeType = "text/plain"

// telegramClient is the slice of *tgbotapi.BotAPI the bot and its helpers
// need; tests substitute a fake.
type telegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wires Telegram updates to extraction and transfer. Outgoing traffic
// goes through the tg interface so handlers are testable with a fake.
type Bot struct {
	api       *tgbotapi.BotAPI
	tg        telegramClient
	cfg       *config.Config
	store     *job.Store
	auth      *api.Authenticator
	traverser *extract.Traverser
	pipeline  *transfer.Pipeline
	log       *logger.Logger

	loginOnce sync.Once
	loginErr  error
}

// New creates the bot front end.
func New(botAPI *tgbotapi.BotAPI, cfg *config.Config, store *job.Store, auth *api.Authenticator, traverser *extract.Traverser, pipeline *transfer.Pipeline, log *logger.Logger) *Bot {
	return &Bot{
		api:       botAPI,
		tg:        botAPI,
		cfg:       cfg,
		store:     store,
		auth:      auth,
		traverser: traverser,
		pipeline:  pipeline,
		log:       log,
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, "You are not authorized to use this bot.")
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, helpText)
	case "batch":
		b.handleBatch(ctx, msg)
	case "upload":
		b.handleUpload(ctx, msg)
	case "setchannel":
		b.handleSetChannel(msg)
	case "status":
		b.handleStatus(msg)
	case "cancel":
		b.handleCancel(msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Send /start for help.")
	}
}

// handleBatch starts the hierarchy extraction for a batch id.
func (b *Bot) handleBatch(ctx context.Context, msg *tgbotapi.Message) {
	batchID := strings.TrimSpace(msg.CommandArguments())
	if batchID == "" {
		b.reply(msg.Chat.ID, "Usage: /batch <batch id>")
		return
	}

	j, err := b.store.Begin(msg.From.ID, batchID)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Cannot start: %v. Use /cancel first.", err))
		return
	}

	if err := b.ensureLogin(ctx); err != nil {
		j.SetStatus(model.JobStatusIdle)
		b.reply(msg.Chat.ID, fmt.Sprintf("Platform login failed: %v", err))
		return
	}

	j.SetStatus(model.JobStatusExtracting)
	b.reply(msg.Chat.ID, fmt.Sprintf("Extracting batch %s...", batchID))

	go b.runExtraction(ctx, msg.Chat.ID, batchID, j)
}

func (b *Bot) runExtraction(ctx context.Context, chatID int64, batchID string, j *model.Job) {
	m, err := extract.NewManifest(b.cfg.DownloadPath, batchID)
	if err != nil {
		b.log.Error("manifest create failed", "error", err)
		j.SetStatus(model.JobStatusIdle)
		b.reply(chatID, fmt.Sprintf("Extraction failed: %v", err))
		return
	}

	runErr := b.traverser.Run(ctx, batchID, j, m)
	m.Close()

	if runErr != nil {
		j.SetStatus(model.JobStatusCancelled)
		b.reply(chatID, "Extraction aborted.")
		return
	}

	// An extraction that found nothing leaves the job idle: there is no
	// record list to transfer and no manifest worth sending.
	if len(j.RecordList()) == 0 {
		j.SetStatus(model.JobStatusIdle)
		b.reply(chatID, fmt.Sprintf("Batch %s: no assets found.", batchID))
		return
	}

	j.SetManifestPath(m.Path())
	j.SetStatus(model.JobStatusExtracted)
	b.sendManifest(chatID, j)
	b.reply(chatID, extractionSummaryText(j))
}

// sendManifest uploads the batch manifest file to the chat.
func (b *Bot) sendManifest(chatID int64, j *model.Job) {
	path := j.GetManifestPath()
	if path == "" {
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("Manifest for batch %s", j.BatchID)
	if _, err := b.tg.Send(doc); err != nil {
		b.log.Warn("manifest send failed", "error", err)
	}
}

// handleUpload runs the transfer pipeline over the extracted records.
func (b *Bot) handleUpload(ctx context.Context, msg *tgbotapi.Message) {
	j, ok := b.store.Get(msg.From.ID)
	if !ok || j.GetStatus() != model.JobStatusExtracted {
		b.reply(msg.Chat.ID, "Nothing to upload. Run /batch or send a manifest file first.")
		return
	}
	if _, total := j.Progress(); total == 0 {
		b.reply(msg.Chat.ID, "The current job has no records.")
		return
	}

	destChat := msg.Chat.ID
	if dest := j.GetDestination(); dest != 0 {
		destChat = dest
	}

	progress := newProgressMessage(b.tg, msg.Chat.ID)
	sink := NewTelegramSink(b.tg, destChat)

	go func() {
		// Hooks run sequentially on the pipeline goroutine, so the
		// per-record upload clock needs no locking.
		var uploadStart time.Time
		sum := b.pipeline.Run(ctx, j, sink, transfer.Hooks{
			OnRecordStart: func(index, total int, rec model.AssetRecord) {
				uploadStart = time.Time{}
				progress.Update(fmt.Sprintf("[%d/%d] %s", index, total, rec.Title))
			},
			OnUploadProgress: func(rec model.AssetRecord, done, total int64) {
				if uploadStart.IsZero() {
					uploadStart = time.Now()
				}
				progress.Update(uploadProgressText(rec, done, total, time.Since(uploadStart)))
			},
			OnOutcome: func(rec model.AssetRecord, out model.TransferOutcome) {
				if out.Status != model.OutcomeDelivered {
					b.log.Info("record not delivered", "title", rec.Title, "status", out.Status, "reason", out.Reason)
				}
			},
		})
		progress.Finish()
		b.reply(msg.Chat.ID, transferSummaryText(j, sum))
	}()

	b.reply(msg.Chat.ID, fmt.Sprintf("Uploading %d records...", len(j.RecordList())))
}

// handleSetChannel validates then records the destination channel.
func (b *Bot) handleSetChannel(msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.reply(msg.Chat.ID, "Usage: /setchannel <channel id>")
		return
	}

	chatID, err := ParseChannelID(arg)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Invalid channel id: %v", err))
		return
	}
	if err := ProbeDestination(b.tg, chatID); err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Cannot post to that channel: %v", err))
		return
	}

	b.store.SetDestination(msg.From.ID, chatID)
	b.reply(msg.Chat.ID, fmt.Sprintf("Destination set to %d.", chatID))
}

func (b *Bot) handleStatus(msg *tgbotapi.Message) {
	j, ok := b.store.Get(msg.From.ID)
	if !ok {
		b.reply(msg.Chat.ID, "No job yet. Run /batch <id> to start.")
		return
	}
	b.reply(msg.Chat.ID, statusText(j))
}

func (b *Bot) handleCancel(msg *tgbotapi.Message) {
	if !b.store.Cancel(msg.From.ID) {
		b.reply(msg.Chat.ID, "Nothing to cancel.")
		return
	}
	b.reply(msg.Chat.ID, "Cancelling after the current record finishes.")
}

// handleDocument accepts a .txt manifest and loads its records as a job.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".txt") && doc.MimeType != manifestMimeType {
		b.reply(msg.Chat.ID, "Send a .txt manifest with title:url lines.")
		return
	}

	records, err := b.fetchManifestRecords(ctx, doc.FileID)
	if err != nil {
		b.log.Warn("manifest intake failed", "error", err)
		b.reply(msg.Chat.ID, "Could not read that file.")
		return
	}
	if len(records) == 0 {
		b.reply(msg.Chat.ID, "No usable title:url lines found.")
		return
	}

	batchID := strings.TrimSuffix(doc.FileName, filepath.Ext(doc.FileName))
	j, err := b.store.Begin(msg.From.ID, batchID)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Cannot start: %v. Use /cancel first.", err))
		return
	}
	for _, rec := range records {
		j.Append(rec)
	}
	j.SetStatus(model.JobStatusExtracted)

	b.reply(msg.Chat.ID, extractionSummaryText(j)+"\n\nSend /upload to begin the transfer.")
}

// fetchManifestRecords downloads a Telegram document and parses it.
func (b *Bot) fetchManifestRecords(ctx context.Context, fileID string) ([]model.AssetRecord, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	return extract.ParseManifest(resp.Body), nil
}

// ensureLogin authenticates against the content platform once per process.
func (b *Bot) ensureLogin(ctx context.Context) error {
	b.loginOnce.Do(func() {
		_, b.loginErr = b.auth.Login(ctx, b.cfg.VendorMobile, b.cfg.VendorPassword)
	})
	return b.loginErr
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("send failed", "chat", chatID, "error", err)
	}
}

// ParseChannelID parses a /setchannel argument. Channel ids are negative and
// carry the -100 prefix Telegram assigns to supergroups and channels.
func ParseChannelID(arg string) (int64, error) {
	if !strings.HasPrefix(arg, "-100") {
		return 0, fmt.Errorf("channel ids start with -100")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	return id, nil
}

// ProbeDestination verifies the bot can post to a chat by sending and
// deleting a throwaway message.
func ProbeDestination(client telegramClient, chatID int64) error {
	sent, err := client.Send(tgbotapi.NewMessage(chatID, "Connection check."))
	if err != nil {
		return err
	}
	// A failed delete does not matter: the send already proved write access.
	client.Request(tgbotapi.NewDeleteMessage(chatID, sent.MessageID))
	return nil
}

// progressMessage edits a single Telegram message in place, throttled so
// rapid pipeline updates do not hit the edit rate limit.
type progressMessage struct {
	client    telegramClient
	chatID    int64
	messageID int
	lastEdit  time.Time
	lastText  string
}

const progressEditInterval = 3 * time.Second

func newProgressMessage(client telegramClient, chatID int64) *progressMessage {
	return &progressMessage{client: client, chatID: chatID}
}

// Update creates the message on first call, then edits it at most once per
// interval.
func (p *progressMessage) Update(text string) {
	if text == p.lastText {
		return
	}
	if p.messageID == 0 {
		sent, err := p.client.Send(tgbotapi.NewMessage(p.chatID, text))
		if err != nil {
			return
		}
		p.messageID = sent.MessageID
		p.lastEdit = time.Now()
		p.lastText = text
		return
	}
	if time.Since(p.lastEdit) < progressEditInterval {
		return
	}
	if _, err := p.client.Send(tgbotapi.NewEditMessageText(p.chatID, p.messageID, text)); err != nil {
		return
	}
	p.lastEdit = time.Now()
	p.lastText = text
}

// Finish removes the progress message.
func (p *progressMessage) Finish() {
	if p.messageID == 0 {
		return
	}
	p.client.Request(tgbotapi.NewDeleteMessage(p.chatID, p.messageID))
	p.messageID = 0
}
