package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/justsurfingit/jobtrack/internal/models"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"gorm.io/gorm"
)

// EmailService polls Gmail and feeds each new message through the
// classifier gateway and the reconciler. Reconciliation runs as a
// background batch: classifier failures are logged for later review,
// never surfaced to the interactive user.
type EmailService struct {
	DB          *gorm.DB
	LLMService  *LLMService
	Reconciler  *ReconcilerService
	GmailClient *gmail.Service
	Interval    time.Duration
}

func NewEmailService(db *gorm.DB, llm *LLMService, reconciler *ReconcilerService, gmail *gmail.Service, interval time.Duration) *EmailService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &EmailService{
		DB:          db,
		LLMService:  llm,
		Reconciler:  reconciler,
		GmailClient: gmail,
		Interval:    interval,
	}
}

// StartWatcher starts the background polling loop.
func (s *EmailService) StartWatcher() {
	if s.GmailClient == nil {
		log.Println("Gmail watcher disabled (no client). Check credentials.")
		return
	}

	ticker := time.NewTicker(s.Interval)

	// Run immediately on startup
	go s.SyncEmails()

	go func() {
		for range ticker.C {
			s.SyncEmails()
		}
	}()
}

// SyncEmails runs one sync cycle: fetch new messages, classify each one,
// hand the result to the reconciler, and advance the history bookmark.
func (s *EmailService) SyncEmails() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Println("Email watcher: starting sync cycle...")

	var state models.SyncState
	if err := s.DB.First(&state).Error; err != nil {
		state = models.SyncState{Email: "default", LastHistoryID: 0}
		s.DB.Create(&state)
	}

	var messages []*gmail.Message
	var newHistoryID uint64
	var err error

	if state.LastHistoryID == 0 {
		log.Println("First run detected. Running full bootstrap sync...")
		messages, newHistoryID, err = s.performFullSync(ctx)
	} else {
		messages, newHistoryID, err = s.performIncrementalSync(ctx, state.LastHistoryID)

		// Google expires old history ids; fall back to a full scan.
		if err != nil && isHistoryExpiredError(err) {
			log.Println("History id expired. Falling back to full sync.")
			messages, newHistoryID, err = s.performFullSync(ctx)
		}
	}
	if err != nil {
		log.Printf("Sync failed: %v", err)
		return
	}

	if len(messages) == 0 {
		log.Println("No new relevant emails found.")
		if newHistoryID > state.LastHistoryID {
			s.updateHistoryID(state.ID, newHistoryID)
		}
		return
	}

	log.Printf("Processing %d candidate emails...", len(messages))

	for _, msg := range messages {
		var count int64
		s.DB.Model(&models.ProcessedEmail{}).Where("id = ?", msg.Id).Count(&count)
		if count > 0 {
			continue
		}

		s.processSingleEmail(ctx, msg)

		s.DB.Create(&models.ProcessedEmail{ID: msg.Id})
	}

	if newHistoryID > state.LastHistoryID {
		s.updateHistoryID(state.ID, newHistoryID)
		log.Printf("History bookmark updated to %d", newHistoryID)
	}
}

// performFullSync scans the last 7 days and resets the history anchor.
func (s *EmailService) performFullSync(ctx context.Context) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListMessagesResponse

	q := "subject:(application OR interview OR update OR offer OR rejected OR status) newer_than:7d"

	err := retry(3, 1*time.Second, func() error {
		var e error
		call := s.GmailClient.Users.Messages.List("me").Q(q).MaxResults(50)
		resp, e = call.Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	profile, err := s.GmailClient.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, 0, err
	}

	fullMessages := s.expandMessages(ctx, resp.Messages)
	return fullMessages, profile.HistoryId, nil
}

// performIncrementalSync asks Google only for what changed since startID.
func (s *EmailService) performIncrementalSync(ctx context.Context, startID uint64) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListHistoryResponse

	err := retry(3, 1*time.Second, func() error {
		var e error
		call := s.GmailClient.Users.History.List("me").StartHistoryId(startID)
		call.HistoryTypes("messageAdded")
		resp, e = call.Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	var msgHeaders []*gmail.Message
	for _, h := range resp.History {
		for _, mAdded := range h.MessagesAdded {
			if mAdded.Message != nil {
				msgHeaders = append(msgHeaders, mAdded.Message)
			}
		}
	}

	fullMessages := s.expandMessages(ctx, msgHeaders)
	return fullMessages, resp.HistoryId, nil
}

// expandMessages fetches full body/headers for a list of message ids.
func (s *EmailService) expandMessages(ctx context.Context, headers []*gmail.Message) []*gmail.Message {
	var fullMessages []*gmail.Message
	for _, h := range headers {
		retry(2, 500*time.Millisecond, func() error {
			msg, err := s.GmailClient.Users.Messages.Get("me", h.Id).Context(ctx).Do()
			if err == nil {
				fullMessages = append(fullMessages, msg)
			}
			return err
		})
	}
	return fullMessages
}

// processSingleEmail classifies one message and reconciles the result.
// The classifier call is network I/O and runs before any store work; no
// database transaction is ever held across it.
func (s *EmailService) processSingleEmail(ctx context.Context, msg *gmail.Message) {
	headers := parseHeaders(msg)
	subject := headers["Subject"]
	sender := headers["From"]

	shortSub := subject
	if len(shortSub) > 20 {
		shortSub = shortSub[:20] + "..."
	}
	logPrefix := fmt.Sprintf("[Email: %s]", shortSub)

	log.Printf("%s START processing from: %s", logPrefix, sender)

	body := getEmailBody(msg)

	result, err := s.LLMService.ClassifyEmail(ctx, sender, subject, body)
	if err != nil {
		log.Printf("%s SKIPPED: classification failed: %v", logPrefix, err)
		return
	}
	log.Printf("%s Classifier: category=%s confidence=%.2f company=%q role=%q suggested=%q",
		logPrefix, result.Category, result.Confidence, result.Company, result.Role, result.SuggestedStage)

	outcome, err := s.Reconciler.ReconcileFromClassification(result)
	if err != nil {
		log.Printf("%s FAILED: reconciliation error: %v", logPrefix, err)
		return
	}

	switch outcome.Outcome {
	case ReconcileCreated:
		log.Printf("%s Created application %d (%s / %s) at stage %s",
			logPrefix, outcome.Application.ID, outcome.Application.Company, outcome.Application.Role, outcome.Application.Stage)
	case ReconcileMoved:
		log.Printf("%s Moved application %d to stage %s", logPrefix, outcome.Application.ID, outcome.Application.Stage)
	case ReconcileSkippedLowConfidence:
		log.Printf("%s Skipped: confidence %.2f below threshold %.2f; flagged for review",
			logPrefix, result.Confidence, s.Reconciler.ConfidenceThreshold)
	case ReconcileSkippedBackward:
		log.Printf("%s Skipped: classifier suggested a backward move; ignored", logPrefix)
	case ReconcileSkippedIrrelevant:
		log.Printf("%s Skipped: category %s is not actionable", logPrefix, result.Category)
	default:
		log.Printf("%s No change needed.", logPrefix)
	}
}

// --- HELPERS ---

// retry executes a function with exponential backoff.
func retry(attempts int, sleep time.Duration, f func() error) error {
	for i := 0; i < attempts; i++ {
		err := f()
		if err == nil {
			return nil
		}
		// History-expired errors fail fast so the caller can switch to
		// a full sync instead of burning retries.
		if isHistoryExpiredError(err) {
			return err
		}

		log.Printf("API error: %v. Retrying in %v...", err, sleep)
		time.Sleep(sleep)
		sleep *= 2
	}
	return fmt.Errorf("failed after %d attempts", attempts)
}

func isHistoryExpiredError(err error) bool {
	if gErr, ok := err.(*googleapi.Error); ok {
		return gErr.Code == 404
	}
	return false
}

func (s *EmailService) updateHistoryID(stateID uint, newID uint64) {
	s.DB.Model(&models.SyncState{}).Where("id = ?", stateID).Update("last_history_id", newID)
}

func parseHeaders(msg *gmail.Message) map[string]string {
	res := make(map[string]string)
	for _, h := range msg.Payload.Headers {
		res[h.Name] = h.Value
	}
	return res
}

func getEmailBody(msg *gmail.Message) string {
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		d, _ := base64.URLEncoding.DecodeString(msg.Payload.Body.Data)
		return string(d)
	}
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			d, _ := base64.URLEncoding.DecodeString(part.Body.Data)
			return string(d)
		}
	}
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/html" && part.Body.Data != "" {
			d, _ := base64.URLEncoding.DecodeString(part.Body.Data)
			return string(d)
		}
	}
	return ""
}
