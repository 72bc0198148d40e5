package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nexus-wa-bridge/internal/application/session"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	_ "modernc.org/sqlite"
)

const snapshotTimeout = 10 * time.Second

// Dialer opens whatsmeow clients backed by a local SQLite device database.
// The credential blob handed to Dial is a snapshot of that database.
type Dialer struct {
	dbPath string
	log    *slog.Logger
}

func NewDialer(dbPath string, log *slog.Logger) *Dialer {
	if log == nil {
		log = slog.Default()
	}
	return &Dialer{dbPath: dbPath, log: log.With("component", "whatsapp")}
}

func (d *Dialer) Dial(ctx context.Context, creds []byte, sink session.EventSink) (session.Conn, error) {
	if err := restore(d.dbPath, creds); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn(d.dbPath))
	if err != nil {
		return nil, fmt.Errorf("open device db: %w", err)
	}
	container := sqlstore.NewWithDB(db, "sqlite3", newLogger(d.log, "store"))
	if err := container.Upgrade(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("upgrade device db: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load device: %w", err)
	}

	client := whatsmeow.NewClient(device, newLogger(d.log, "client"))
	// Reconnection is the session manager's decision.
	client.EnableAutoReconnect = false

	qrCtx, cancelQR := context.WithCancel(context.Background())
	c := &conn{
		client:   client,
		db:       db,
		dbPath:   d.dbPath,
		sink:     sink,
		log:      d.log,
		cancelQR: cancelQR,
	}
	client.AddEventHandler(c.handle)

	if client.Store.ID == nil {
		qrs, err := client.GetQRChannel(qrCtx)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("open pairing channel: %w", err)
		}
		go c.forwardQR(qrs)
	}

	if err := client.Connect(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	d.log.Info("client connecting", "paired", client.Store.ID != nil)
	return c, nil
}

type conn struct {
	client   *whatsmeow.Client
	db       *sql.DB
	dbPath   string
	sink     session.EventSink
	log      *slog.Logger
	cancelQR context.CancelFunc

	closeOnce sync.Once
}

// Exists reports whether the E.164 number id (without the plus) has an account.
func (c *conn) Exists(ctx context.Context, id string) (bool, error) {
	resp, err := c.client.IsOnWhatsApp(ctx, []string{"+" + id})
	if err != nil {
		return false, fmt.Errorf("is on whatsapp: %w", err)
	}
	for _, r := range resp {
		if r.IsIn {
			return true, nil
		}
	}
	return false, nil
}

// Close disconnects without waiting for in-flight event handlers; the manager
// ignores whatever they deliver afterwards.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancelQR()
		c.client.Disconnect()
		err = c.db.Close()
	})
	return err
}

func (c *conn) handle(evt interface{}) {
	r := classify(evt)
	if r.snapshot {
		c.persist()
	}
	if r.event != nil {
		_ = c.sink(*r.event)
	}
}

// persist hands a fresh snapshot of the device store to the sink, which saves it
// before returning.
func (c *conn) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	blob, err := snapshot(ctx, c.db, c.dbPath)
	if err != nil {
		c.log.Error("snapshot device store", "err", err)
		return
	}
	if err := c.sink(session.Event{Kind: session.EventCredentials, Credentials: blob}); err != nil {
		c.log.Error("persist credentials", "err", err)
	}
}

func (c *conn) forwardQR(qrs <-chan whatsmeow.QRChannelItem) {
	for item := range qrs {
		if ev := classifyQR(item); ev != nil {
			_ = c.sink(*ev)
		}
	}
}
