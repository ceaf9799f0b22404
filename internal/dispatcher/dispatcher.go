// Package dispatcher turns Slack event callbacks into background work:
// deduplicate, enqueue, acknowledge, then classify and act off the request path.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack/slackevents"

	"github.com/PratikDhanave/sprintbot/internal/dedup"
	"github.com/PratikDhanave/sprintbot/internal/logging"
	"github.com/PratikDhanave/sprintbot/internal/models"
	"github.com/PratikDhanave/sprintbot/internal/notify"
	"github.com/PratikDhanave/sprintbot/internal/replies"
	"github.com/PratikDhanave/sprintbot/internal/worker"
)

// ErrBadPayload is returned when a delivery is not a JSON object.
var ErrBadPayload = errors.New("malformed event payload")

// DefaultClassifyTimeout bounds classification when Deps leaves it unset.
const DefaultClassifyTimeout = 10 * time.Second

// Classifier maps message text onto an intent.
type Classifier interface {
	Detect(ctx context.Context, text string) (models.IntentResult, bool)
}

// TicketService is the part of the ticket client the bot drives.
type TicketService interface {
	TicketsForUser(ctx context.Context, userID string) models.TicketList
	CreateTicket(ctx context.Context, title, assigneeName, requesterID string) string
	DeleteTicket(ctx context.Context, ticketID string) string
}

// Submitter accepts background tasks without blocking.
type Submitter interface {
	Submit(t worker.Task) (string, error)
}

// Journal records handled interactions. Optional.
type Journal interface {
	InsertInteraction(ctx context.Context, in models.Interaction) (bool, error)
}

// Deps are the collaborators a Dispatcher drives. Journal is optional.
type Deps struct {
	Cache      *dedup.Cache
	Pool       Submitter
	Classifier Classifier
	Tickets    TicketService
	Notifier   notify.Notifier
	Journal    Journal
	UserMap    map[string]string // slack user id -> ticket-service user id
	Logger     *slog.Logger

	// ClassifyTimeout caps the model round-trip, and with it the delay
	// before the user sees the first message.
	ClassifyTimeout time.Duration
}

// Dispatcher accepts Slack deliveries and hands actionable messages to the
// worker pool.
type Dispatcher struct {
	cache      *dedup.Cache
	pool       Submitter
	classifier Classifier
	tickets    TicketService
	notifier   notify.Notifier
	journal    Journal
	userMap    map[string]string
	logger     *slog.Logger

	classifyTimeout time.Duration
}

// New builds a Dispatcher from d.
func New(d Deps) *Dispatcher {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	classifyTimeout := d.ClassifyTimeout
	if classifyTimeout <= 0 {
		classifyTimeout = DefaultClassifyTimeout
	}
	return &Dispatcher{
		cache:      d.Cache,
		pool:       d.Pool,
		classifier: d.Classifier,
		tickets:    d.Tickets,
		notifier:   d.Notifier,
		journal:    d.Journal,
		userMap:    d.UserMap,
		logger:     logger.With("component", "dispatcher"),

		classifyTimeout: classifyTimeout,
	}
}

// Ack is what the webhook answers with. Challenge is set only for handshakes
// and holds the value exactly as received.
type Ack struct {
	Challenge json.RawMessage
	TaskID    string
}

// HandleEvent processes one webhook delivery. It never waits for downstream
// calls. Errors are ErrBadPayload or the pool's submission errors.
func (d *Dispatcher) HandleEvent(raw []byte) (Ack, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Ack{}, ErrBadPayload
	}
	if challenge, ok := envelope["challenge"]; ok {
		return Ack{Challenge: challenge}, nil
	}

	ev, ok := d.parse(raw)
	if !ok || !ev.Actionable() {
		return Ack{}, nil
	}

	key := ev.DedupKey()
	if key == "" {
		d.logger.Warn("event has no dedup key, processing without dedup", "channel", ev.ChannelID)
	} else if d.cache.Seen(key) {
		d.logger.Info("skipping duplicate event", "event_key", key)
		return Ack{}, nil
	}

	id, err := d.pool.Submit(worker.Task{
		Run: func(ctx context.Context) { d.process(ctx, ev) },
	})
	if err != nil {
		// Let the platform's redelivery try again.
		if key != "" {
			d.cache.Forget(key)
		}
		d.logger.Error("failed to enqueue event", "event_key", key, "error", err)
		return Ack{}, err
	}
	d.logger.Info("event accepted", "event_key", key, "task_id", id, "channel", ev.ChannelID, "user", ev.UserID)
	return Ack{TaskID: id}, nil
}

// parse extracts the message event. ok is false for anything that is not a
// message callback.
func (d *Dispatcher) parse(raw []byte) (models.SlackEvent, bool) {
	outer, err := slackevents.ParseEvent(json.RawMessage(raw), slackevents.OptionNoVerifyToken())
	if err != nil {
		d.logger.Debug("ignoring unparseable event", "error", err)
		return models.SlackEvent{}, false
	}
	if outer.Type != slackevents.CallbackEvent {
		return models.SlackEvent{}, false
	}
	msg, ok := outer.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok || msg == nil {
		return models.SlackEvent{}, false
	}

	ev := models.SlackEvent{
		EventTimestamp: msg.EventTimeStamp,
		MessageTS:      msg.TimeStamp,
		Type:           outer.InnerEvent.Type,
		HasSubtype:     msg.SubType != "",
		IsBotMessage:   msg.BotID != "",
		ChannelID:      msg.Channel,
		UserID:         msg.User,
		Text:           msg.Text,
	}
	switch cb := outer.Data.(type) {
	case *slackevents.EventsAPICallbackEvent:
		if cb != nil {
			ev.EventID = cb.EventID
		}
	case slackevents.EventsAPICallbackEvent:
		ev.EventID = cb.EventID
	}
	return ev, true
}

// process runs on a worker: classify, acknowledge, act, reply. The ack goes
// out before any ticket-service call. The user always gets a final message,
// the generic failure text if anything panics.
func (d *Dispatcher) process(ctx context.Context, ev models.SlackEvent) {
	logger := d.logger.With("event_key", ev.DedupKey(), "channel", ev.ChannelID)
	defer func() {
		if r := recover(); r != nil {
			logging.CapturePanic(logger, r, "user", ev.UserID)
			d.notifier.Send(ctx, ev.ChannelID, replies.Failure)
			d.record(ctx, ev, models.IntentUnknown, replies.Failure)
		}
	}()

	requester := d.requesterID(ev.UserID)

	// The ack depends on the intent, so classification is the only call
	// allowed before the first message; it is capped so that message is prompt.
	classifyCtx, cancel := context.WithTimeout(ctx, d.classifyTimeout)
	res, ok := d.classifier.Detect(classifyCtx, ev.Text)
	cancel()
	if !ok {
		logger.Info("intent not recognized")
		d.notifier.Send(ctx, ev.ChannelID, replies.NotUnderstood)
		d.record(ctx, ev, models.IntentUnknown, replies.NotUnderstood)
		return
	}
	logger = logger.With("intent", res.Intent)

	d.notifier.Send(ctx, ev.ChannelID, replies.Ack(res.Intent))

	var reply string
	switch res.Intent {
	case models.IntentGetMyTickets:
		reply = replies.Tickets(d.tickets.TicketsForUser(ctx, requester).Tickets)
	case models.IntentCreateTicket:
		reply = d.tickets.CreateTicket(ctx, res.Title, res.Assignee, requester)
	case models.IntentDeleteTicket:
		reply = d.tickets.DeleteTicket(ctx, res.TicketID)
	case models.IntentBotCapabilities:
		reply = replies.Capabilities()
	default:
		reply = replies.NotUnderstood
	}

	d.notifier.Send(ctx, ev.ChannelID, reply)
	d.record(ctx, ev, res.Intent, reply)
	logger.Info("event handled")
}

// requesterID maps a Slack user onto the ticket service; unmapped ids pass through.
func (d *Dispatcher) requesterID(slackUser string) string {
	if id, ok := d.userMap[slackUser]; ok && id != "" {
		return id
	}
	return slackUser
}

func (d *Dispatcher) record(ctx context.Context, ev models.SlackEvent, intent models.Intent, reply string) {
	if d.journal == nil {
		return
	}
	key := ev.DedupKey()
	if key == "" {
		key = uuid.NewString()
	}
	in := models.Interaction{
		ID:        uuid.NewString(),
		EventKey:  key,
		ChannelID: ev.ChannelID,
		UserID:    ev.UserID,
		Text:      ev.Text,
		Intent:    intent,
		Reply:     reply,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := d.journal.InsertInteraction(ctx, in); err != nil {
		d.logger.Error("failed to journal interaction", "event_key", key, "error", err)
	}
}
