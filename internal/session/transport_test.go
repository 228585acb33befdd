package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventstorming-sync-server/internal/apiclient"
	"eventstorming-sync-server/internal/board"
	"eventstorming-sync-server/internal/domain"
	"eventstorming-sync-server/internal/handler"
	"eventstorming-sync-server/internal/metrics"
	"eventstorming-sync-server/internal/presence"
	"eventstorming-sync-server/internal/repository"
	"eventstorming-sync-server/internal/service"
	"eventstorming-sync-server/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startServer(t *testing.T) (httpURL, wsURL string) {
	t.Helper()

	logger := zap.NewNop()
	collector := metrics.NewCollector("test")

	boards := handler.NewBoardHandler(service.NewBoardService(repository.NewMemoryBoardRepository(0), logger, collector))

	manager := websocket.NewManager(websocket.DefaultOptions(), logger, collector)
	collab := service.NewCollaborationService(presence.NewRegistry(), manager, logger, collector)
	manager.SetMessageHandler(handler.NewWebSocketMessageHandler(collab, manager))

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	r := mux.NewRouter()
	r.HandleFunc("/api/boards", boards.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/boards/{id}", boards.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/boards/{id}", boards.Replace).Methods(http.MethodPut)
	r.HandleFunc("/ws", handler.NewWebSocketHandler(manager, 1024, 1024, logger).HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv.URL, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func connect(t *testing.T, api *apiclient.Client, wsURL string) *Session {
	t.Helper()

	transport := NewWSTransport(wsURL, DefaultTransportOptions(), zap.NewNop())
	s := New(transport, api, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		transport.Run(ctx, s)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, transport.Connected, 2*time.Second, 5*time.Millisecond)
	return s
}

func TestSession_OverWebSocket(t *testing.T) {
	httpURL, wsURL := startServer(t)
	api := apiclient.New(httpURL)
	ctx := context.Background()

	created, err := api.CreateBoard(ctx, "Checkout")
	require.NoError(t, err)

	alice := connect(t, api, wsURL)
	bob := connect(t, api, wsURL)

	require.NoError(t, alice.Join(ctx, created.ID, "alice"))
	require.Eventually(t, func() bool { return alice.Status() == StatusJoined }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, bob.Join(ctx, created.ID, "bob"))
	require.Eventually(t, func() bool { return bob.Status() == StatusJoined }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(alice.Members()) == 2 }, 2*time.Second, 5*time.Millisecond)

	note := board.NewNote(domain.NoteTypeCommand, 10, 10)
	require.NoError(t, alice.Execute(board.CreateNote{Note: note}))
	require.Eventually(t, func() bool { return len(bob.State().Notes) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, note, bob.State().Notes[0])

	require.True(t, alice.Undo())
	require.Eventually(t, func() bool { return len(bob.State().Notes) == 0 }, 2*time.Second, 5*time.Millisecond)

	undo, redo := bob.HistoryDepth()
	assert.Zero(t, undo)
	assert.Zero(t, redo)

	require.True(t, alice.Redo())
	saver := NewSaver(alice, api, time.Hour, zap.NewNop())
	saved, err := saver.SaveNow(ctx)
	require.NoError(t, err)
	assert.True(t, saved)

	stored, err := api.GetBoard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Note{note}, stored.Notes)

	bob.Leave()
	require.Eventually(t, func() bool { return len(alice.Members()) == 1 }, 2*time.Second, 5*time.Millisecond)
}
