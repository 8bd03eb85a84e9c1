package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibtikar/ibtikar-backend/internal/messages"
)

func TestSendAndConversationOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	creatorTok, creatorID := ts.signUp(t, "maha@example.com", "Maha", "creator")
	companyTok, companyID := ts.signUp(t, "acme@example.com", "Acme", "company")

	var sent messages.Message
	w := ts.do(t, http.MethodPost, "/api/v1/messages", creatorTok, gin.H{
		"receiverId": companyID, "content": "hi there",
	}, &sent)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, creatorID, sent.SenderID)

	w = ts.do(t, http.MethodPost, "/api/v1/messages", companyTok, gin.H{
		"receiverId": creatorID, "content": "hello",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var conv []*messages.Message
	w = ts.do(t, http.MethodGet, "/api/v1/messages/"+companyID, creatorTok, nil, &conv)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, conv, 2)
	assert.Equal(t, "hi there", conv[0].Content)
	assert.Equal(t, "hello", conv[1].Content)
}

type feedBatch struct {
	Peer     string              `json:"peer"`
	Messages []*messages.Message `json:"messages"`
}

func readBatch(t *testing.T, conn *websocket.Conn) feedBatch {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var b feedBatch
	require.NoError(t, conn.ReadJSON(&b))
	return b
}

func TestLiveFeedOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	creatorTok, creatorID := ts.signUp(t, "maha@example.com", "Maha", "creator")
	companyTok, companyID := ts.signUp(t, "acme@example.com", "Acme", "company")
	_, otherID := ts.signUp(t, "other@example.com", "Other", "company")

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/api/v1/messages/" + companyID + "/live"
	hdr := http.Header{"Authorization": {"Bearer " + creatorTok}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, hdr)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// initial snapshot is empty
	b := readBatch(t, conn)
	assert.Equal(t, companyID, b.Peer)
	assert.Empty(t, b.Messages)

	// a message from the company lands as a fresh batch
	w := ts.do(t, http.MethodPost, "/api/v1/messages", companyTok, gin.H{
		"receiverId": creatorID, "content": "saw your application",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	b = readBatch(t, conn)
	require.Len(t, b.Messages, 1)
	assert.Equal(t, "saw your application", b.Messages[0].Content)

	// switching peers releases the old conversation and snapshots the new one
	require.NoError(t, conn.WriteJSON(gin.H{"peer": otherID}))
	b = readBatch(t, conn)
	assert.Equal(t, otherID, b.Peer)
	assert.Empty(t, b.Messages)

	// traffic on the old conversation no longer arrives
	w = ts.do(t, http.MethodPost, "/api/v1/messages", companyTok, gin.H{
		"receiverId": creatorID, "content": "still there?",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var stray feedBatch
	assert.Error(t, conn.ReadJSON(&stray), "no batch for the released conversation")
}

func TestLiveFeedRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/api/v1/messages/someone/live"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
