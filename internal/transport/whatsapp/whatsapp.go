// Package whatsapp implements domain.Transport on top of whatsmeow.
//
// Each tenant gets its own device store file under the configured session
// directory, so credentials survive restarts and tenants never share a
// WhatsApp identity.
package whatsapp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/logging"
)

// Transport is one tenant's WhatsApp connection.
type Transport struct {
	tenantID string
	dsn      string
	log      *logging.Logger

	mu        sync.Mutex
	client    *whatsmeow.Client
	container *sqlstore.Container

	onMessage func(msg domain.InboundMessage)
	onStatus  func(evt domain.StatusEvent)
}

// New creates a transport for one tenant. The device store lives at
// <sessionDir>/<tenantID>.db.
func New(tenantID, sessionDir string, log *logging.Logger) *Transport {
	path := filepath.Join(sessionDir, tenantID+".db")
	return &Transport{
		tenantID: tenantID,
		dsn:      "file:" + path + "?_pragma=foreign_keys(1)",
		log:      log.Sub("whatsapp"),
	}
}

func (t *Transport) OnMessage(handler func(msg domain.InboundMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMessage = handler
}

func (t *Transport) OnStatusChange(handler func(evt domain.StatusEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStatus = handler
}

// Connect opens the device store and starts the WhatsApp handshake. For a
// fresh device it also begins QR pairing; the codes surface as qr_pending
// status events. Connect returns once the handshake is underway.
func (t *Transport) Connect(ctx context.Context) error {
	t.emit(domain.StatusEvent{State: domain.StateInitializing})

	container, err := sqlstore.New(ctx, "sqlite", t.dsn, waLogAdapter{t.log})
	if err != nil {
		return fmt.Errorf("opening device store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		return fmt.Errorf("loading device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLogAdapter{t.log})
	client.AddEventHandler(t.handleEvent)

	t.mu.Lock()
	t.client = client
	t.container = container
	t.mu.Unlock()

	if client.Store.ID == nil {
		// Fresh device: QR channel must be requested before Connect.
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("requesting QR channel: %w", err)
		}
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connecting for pairing: %w", err)
		}
		go t.pumpQR(qrChan)
		return nil
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	return nil
}

// pumpQR translates whatsmeow QR channel items into status events.
func (t *Transport) pumpQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case "code":
			t.log.Info().Str("tenant", t.tenantID).Msg("new pairing code issued")
			t.emit(domain.StatusEvent{State: domain.StateQRPending, QR: item.Code})
		case whatsmeow.QRChannelSuccess.Event:
			t.log.Info().Str("tenant", t.tenantID).Msg("device paired")
			t.emit(domain.StatusEvent{State: domain.StateAuthenticated})
		default:
			// timeout, client-outdated, scanned-without-multidevice, err
			t.log.Warn().
				Str("tenant", t.tenantID).
				Str("event", item.Event).
				Msg("pairing failed")
			t.emit(domain.StatusEvent{State: domain.StateAuthFailed})
		}
	}
}

// Disconnect tears down the connection and closes the device store. The
// stored credentials remain so a later Connect resumes without re-pairing.
func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	client := t.client
	container := t.container
	t.client = nil
	t.container = nil
	t.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
	if container != nil {
		if err := container.Close(); err != nil {
			return fmt.Errorf("closing device store: %w", err)
		}
	}
	t.emit(domain.StatusEvent{State: domain.StateDisconnected})
	return nil
}

// Send delivers a text message. The recipient may be a bare phone number or
// a full JID.
func (t *Transport) Send(ctx context.Context, msg domain.OutboundMessage) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client == nil {
		return fmt.Errorf("tenant %s is not connected", t.tenantID)
	}

	to, err := recipientJID(msg.To)
	if err != nil {
		return err
	}

	_, err = client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(msg.Body),
	})
	if err != nil {
		return fmt.Errorf("sending to %s: %w", msg.To, err)
	}
	return nil
}

func recipientJID(to string) (types.JID, error) {
	if strings.Contains(to, "@") {
		jid, err := types.ParseJID(to)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("invalid recipient %q: %w", to, err)
		}
		return jid, nil
	}
	return types.NewJID(to, types.DefaultUserServer), nil
}

// handleEvent maps whatsmeow events onto the transport contract.
func (t *Transport) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Connected:
		t.emit(domain.StatusEvent{State: domain.StateConnected})

	case *events.Disconnected:
		t.emit(domain.StatusEvent{State: domain.StateDisconnected})

	case *events.LoggedOut:
		t.log.Warn().Str("tenant", t.tenantID).Msg("device logged out remotely")
		t.emit(domain.StatusEvent{State: domain.StateAuthFailed})

	case *events.Message:
		t.handleMessage(v)
	}
}

func (t *Transport) handleMessage(evt *events.Message) {
	// Group and broadcast chats are out of scope: orders come from 1:1
	// customer conversations only.
	if evt.Info.Chat.Server != types.DefaultUserServer {
		return
	}

	t.mu.Lock()
	handler := t.onMessage
	t.mu.Unlock()
	if handler == nil {
		return
	}

	handler(domain.InboundMessage{
		ID:         evt.Info.ID,
		TenantID:   t.tenantID,
		Sender:     evt.Info.Chat.User,
		SenderName: evt.Info.PushName,
		Kind:       messageKind(evt.Message),
		Body:       messageText(evt.Message),
		FromSelf:   evt.Info.IsFromMe,
		Timestamp:  evt.Info.Timestamp,
	})
}

func (t *Transport) emit(evt domain.StatusEvent) {
	t.mu.Lock()
	handler := t.onStatus
	t.mu.Unlock()
	if handler != nil {
		handler(evt)
	}
}

// messageText extracts the text payload, if any. Plain chats arrive as
// Conversation; quoted replies and link previews as ExtendedTextMessage.
func messageText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	return msg.GetExtendedTextMessage().GetText()
}

func messageKind(msg *waE2E.Message) domain.MessageKind {
	switch {
	case msg == nil:
		return domain.MessageOther
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage().GetText() != "":
		return domain.MessageText
	case msg.ImageMessage != nil || msg.VideoMessage != nil ||
		msg.AudioMessage != nil || msg.DocumentMessage != nil ||
		msg.StickerMessage != nil:
		return domain.MessageMedia
	default:
		return domain.MessageOther
	}
}

// waLogAdapter bridges whatsmeow's logger interface onto the app logger.
type waLogAdapter struct {
	log *logging.Logger
}

func (a waLogAdapter) Warnf(msg string, args ...any)  { a.log.Warn().Msg(fmt.Sprintf(msg, args...)) }
func (a waLogAdapter) Errorf(msg string, args ...any) { a.log.Error().Msg(fmt.Sprintf(msg, args...)) }
func (a waLogAdapter) Infof(msg string, args ...any)  { a.log.Debug().Msg(fmt.Sprintf(msg, args...)) }
func (a waLogAdapter) Debugf(msg string, args ...any) { a.log.Debug().Msg(fmt.Sprintf(msg, args...)) }

func (a waLogAdapter) Sub(module string) waLog.Logger {
	return waLogAdapter{a.log.Sub(strings.ToLower(module))}
}
