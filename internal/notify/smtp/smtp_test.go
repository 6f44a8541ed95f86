package smtp

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal SMTP relay that accepts one message per session.
type fakeServer struct {
	ln       net.Listener
	mu       sync.Mutex
	from     string
	rcpt     []string
	data     string
	rejectTo string
}

func startFakeServer(t *testing.T, rejectTo string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{ln: ln, rejectTo: rejectTo}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *fakeServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.session(conn)
	}
}

func (s *fakeServer) session(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch cmd {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250 fake")
		case "MAIL":
			s.mu.Lock()
			s.from = strings.TrimSuffix(strings.TrimPrefix(line[len("MAIL FROM:"):], "<"), ">")
			s.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case "RCPT":
			addr := strings.TrimSuffix(strings.TrimPrefix(line[len("RCPT TO:"):], "<"), ">")
			if addr == s.rejectTo {
				_ = tp.PrintfLine("550 no such user")
				continue
			}
			s.mu.Lock()
			s.rcpt = append(s.rcpt, addr)
			s.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = strings.Join(lines, "\n")
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "RSET", "NOOP":
			_ = tp.PrintfLine("250 OK")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func (s *fakeServer) snapshot() (string, []string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.from, append([]string(nil), s.rcpt...), s.data
}

func newTestSender(port int) *Sender {
	s := New(Config{Host: "127.0.0.1", Port: port, From: "noreply@gymtrack.test", Timeout: 2 * time.Second})
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestSender_Send(t *testing.T) {
	srv := startFakeServer(t, "")
	s := newTestSender(srv.port())

	err := s.Send(context.Background(), "ada@example.com", "Verify your email", "Hi Ada,\n.\nhttps://x/verify?token=t")
	require.NoError(t, err)

	from, rcpt, data := srv.snapshot()
	assert.Equal(t, "noreply@gymtrack.test", from)
	assert.Equal(t, []string{"ada@example.com"}, rcpt)
	assert.Contains(t, data, "Subject: Verify your email")
	assert.Contains(t, data, "To: ada@example.com")
	assert.Contains(t, data, "Date: Tue, 02 Jan 2024 03:04:05 +0000")
	assert.Contains(t, data, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, data, "https://x/verify?token=t")
	assert.Equal(t, "smtp", s.Name())
}

func TestSender_RecipientRejected(t *testing.T) {
	srv := startFakeServer(t, "ghost@example.com")
	s := newTestSender(srv.port())

	err := s.Send(context.Background(), "ghost@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RCPT TO")
}

func TestSender_HeaderInjection(t *testing.T) {
	s := newTestSender(1)

	err := s.Send(context.Background(), "a@b.com\r\nBcc: evil@x.com", "s", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, errHeaderInjection)

	err = s.Send(context.Background(), "a@b.com", "hi\nBcc: evil@x.com", "b")
	assert.ErrorIs(t, err, errHeaderInjection)
}

func TestSender_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := newTestSender(port)
	err = s.Send(context.Background(), "a@b.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp dial 127.0.0.1:"+strconv.Itoa(port))
}

func TestBuildMessage_NormalizesLineEndings(t *testing.T) {
	s := newTestSender(25)
	msg := string(s.buildMessage("a@b.com", "Grüße", "one\ntwo\r\nthree"))

	assert.Contains(t, msg, "one\r\ntwo\r\nthree\r\n")
	assert.NotContains(t, msg, "two\r\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")

	r := textproto.NewReader(bufio.NewReader(strings.NewReader(msg)))
	hdr, err := r.ReadMIMEHeader()
	require.NoError(t, err)
	assert.Equal(t, "1.0", hdr.Get("MIME-Version"))
	assert.True(t, strings.HasSuffix(hdr.Get("Message-ID"), "@127.0.0.1>"))
}
