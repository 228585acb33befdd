package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventstorming-sync-server/internal/domain"
	"eventstorming-sync-server/internal/handler"
	"eventstorming-sync-server/internal/metrics"
	"eventstorming-sync-server/internal/repository"
	"eventstorming-sync-server/internal/service"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()

	svc := service.NewBoardService(repository.NewMemoryBoardRepository(0), zap.NewNop(), metrics.NewCollector("test"))
	h := handler.NewBoardHandler(svc)

	r := mux.NewRouter()
	r.HandleFunc("/api/boards", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/boards", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/boards/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/boards/{id}", h.Replace).Methods(http.MethodPut)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestClient_BoardLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestServer(t)

	created, err := c.CreateBoard(ctx, "Checkout")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	boards, err := c.ListBoards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.BoardSummary{{ID: created.ID, Name: "Checkout"}}, boards)

	created.Name = "Checkout flow"
	created.Notes = []domain.Note{{ID: "n1", Text: "Order placed", Width: 120, Height: 120}}
	require.NoError(t, c.ReplaceBoard(ctx, created))

	got, err := c.GetBoard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Checkout flow", got.Name)
	assert.Equal(t, created.Notes, got.Notes)
	assert.Empty(t, got.Connections)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newTestServer(t)

	_, err := c.GetBoard(ctx, "missing")
	assert.ErrorIs(t, err, ErrBoardNotFound)

	err = c.ReplaceBoard(ctx, &domain.Board{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrBoardNotFound)

	_, err = c.CreateBoard(ctx, "")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}
