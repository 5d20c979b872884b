package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spark-ws/internal/auth"
	"spark-ws/internal/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, verifier *auth.Verifier) (*Hub, *httptest.Server) {
	t.Helper()
	var binder auth.Binder = auth.TrustingBinder{}
	if verifier != nil {
		binder = auth.TokenBinder{Verifier: verifier}
	}
	hub := startHub(t, binder)
	server := httptest.NewServer(NewHandler(hub, verifier, 16, nil, newTestLogger()))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, eventType string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(models.Inbound{Type: eventType, Data: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(message, &f))
	return f
}

func TestServeWS_CommentReachesIdeaViewer(t *testing.T) {
	req := require.New(t)
	hub, server := newTestServer(t, nil)
	conn := dial(t, server, "")

	write(t, conn, models.EventAuthenticate, models.AuthenticateData{UserID: "u1"})
	req.Equal(models.EventAuthenticated, read(t, conn).Type)
	write(t, conn, models.EventJoinIdea, models.IdeaData{IdeaID: "42"})
	req.Equal(models.EventJoinedIdea, read(t, conn).Type)

	evt, err := models.NewEvent(models.EventCommentAdded, models.Comment{ID: "cm1", IdeaID: "42"})
	req.NoError(err)
	evt.IdeaID = "42"
	req.NoError(hub.Publish(context.Background(), evt))

	got := read(t, conn)
	req.Equal(models.EventCommentAdded, got.Type)
	var comment models.Comment
	req.NoError(json.Unmarshal(got.Data, &comment))
	req.Equal("cm1", comment.ID)
}

func TestServeWS_HandshakeToken(t *testing.T) {
	req := require.New(t)
	verifier := auth.NewVerifier("secret", "spark")
	hub, server := newTestServer(t, verifier)
	token, err := verifier.Issue("u1", "Ada", time.Minute)
	req.NoError(err)

	tab1 := dial(t, server, "?token="+token)
	tab2 := dial(t, server, "?token="+token)

	req.Eventually(func() bool {
		n, _ := hub.Presence(context.Background(), "u1")
		return n == 2
	}, 2*time.Second, 10*time.Millisecond)

	req.NoError(hub.Do(context.Background(), func(d *Dispatcher) {
		d.SendMessageToUser("u1", models.Message{ID: "m1"})
	}))
	req.Equal(models.EventNewMessage, read(t, tab1).Type)
	req.Equal(models.EventNewMessage, read(t, tab2).Type)
}

func TestServeWS_InvalidHandshakeToken(t *testing.T) {
	_, server := newTestServer(t, auth.NewVerifier("secret", "spark"))
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=forged"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_CloseReleasesBinding(t *testing.T) {
	req := require.New(t)
	hub, server := newTestServer(t, nil)
	conn := dial(t, server, "")
	write(t, conn, models.EventAuthenticate, models.AuthenticateData{UserID: "u1"})
	read(t, conn)

	req.NoError(conn.Close())

	req.Eventually(func() bool {
		conns, users, _, _ := hub.Stats(context.Background())
		return conns == 0 && users == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeWS_OriginCheck(t *testing.T) {
	hub := startHub(t, auth.TrustingBinder{})
	server := httptest.NewServer(NewHandler(hub, nil, 16, []string{"http://localhost:3001"}, newTestLogger()))
	t.Cleanup(server.Close)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"http://localhost:3001"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
