package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jobmate/discovery/internal/logging"
)

var errAuthRejected = errors.New("control port rejected authentication")

// TorController rotates circuits over the Tor control protocol
// (AUTHENTICATE, then SIGNAL NEWNYM).
type TorController struct {
	addr     string
	password string
	timeout  time.Duration
	log      zerolog.Logger
}

// NewTorController targets the control port at addr (host:port).
func NewTorController(addr, password string, timeout time.Duration, log zerolog.Logger) *TorController {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TorController{
		addr:     addr,
		password: password,
		timeout:  timeout,
		log:      logging.Component(log, "torctl"),
	}
}

// Rotate authenticates with the configured password, falling back to
// cookie-style and empty-password handshakes, and asks for a new identity.
// Each handshake uses a fresh connection since Tor hangs up after a rejected
// AUTHENTICATE.
func (c *TorController) Rotate(ctx context.Context) error {
	var lastErr error
	for _, auth := range c.handshakes() {
		err := c.rotateWith(ctx, auth)
		if err == nil {
			c.log.Info().Str("addr", c.addr).Msg("circuit renewed")
			return nil
		}
		lastErr = err
		if !errors.Is(err, errAuthRejected) {
			break
		}
		c.log.Debug().Err(err).Msg("handshake rejected, trying next credential")
	}
	return fmt.Errorf("%w: %v", ErrRotationFailed, lastErr)
}

func (c *TorController) handshakes() []string {
	cmds := make([]string, 0, 3)
	if c.password != "" {
		cmds = append(cmds, fmt.Sprintf("AUTHENTICATE %s", quoteControlString(c.password)))
	}
	return append(cmds, "AUTHENTICATE", `AUTHENTICATE ""`)
}

func (c *TorController) rotateWith(ctx context.Context, auth string) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial control port: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	tp := textproto.NewConn(conn)
	if _, err := command(tp, auth); err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) {
			return fmt.Errorf("%w: %v", errAuthRejected, protoErr)
		}
		return err
	}

	msg, err := command(tp, "SIGNAL NEWNYM")
	if err != nil {
		return fmt.Errorf("SIGNAL NEWNYM: %w", err)
	}
	if !strings.Contains(msg, "OK") {
		return fmt.Errorf("SIGNAL NEWNYM: unexpected reply %q", msg)
	}
	_, _ = command(tp, "QUIT")
	return nil
}

// command sends one line and requires a 250 reply.
func command(tp *textproto.Conn, line string) (string, error) {
	id, err := tp.Cmd("%s", line)
	if err != nil {
		return "", err
	}
	tp.StartResponse(id)
	defer tp.EndResponse(id)
	_, msg, err := tp.ReadResponse(250)
	return msg, err
}

func quoteControlString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
