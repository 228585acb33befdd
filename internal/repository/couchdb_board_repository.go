package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"eventstorming-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const boardDocType = "board"

type CouchDBBoardRepository struct {
	db *kivik.DB

	// beforePut runs between reading the current revision and writing over it.
	beforePut func(id string)
}

type boardDoc struct {
	ID          string              `json:"_id"`
	Rev         string              `json:"_rev,omitempty"`
	DocType     string              `json:"doc_type"`
	BoardID     string              `json:"board_id"`
	Name        string              `json:"name"`
	Notes       []domain.Note       `json:"notes"`
	Connections []domain.Connection `json:"connections"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

func NewCouchDBBoardRepository(client *kivik.Client, dbName string) *CouchDBBoardRepository {
	return &CouchDBBoardRepository{
		db: client.DB(dbName),
	}
}

func boardDocID(id string) string {
	return fmt.Sprintf("board:%s", id)
}

func (r *CouchDBBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	doc := boardDoc{
		ID:          boardDocID(board.ID),
		DocType:     boardDocType,
		BoardID:     board.ID,
		Name:        board.Name,
		Notes:       nonNilNotes(board.Notes),
		Connections: nonNilConnections(board.Connections),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return ErrBoardExists
		}
		return fmt.Errorf("failed to create board: %w", err)
	}
	return nil
}

func (r *CouchDBBoardRepository) Get(ctx context.Context, id string) (*domain.Board, error) {
	doc, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return docToBoard(doc), nil
}

// List returns the summaries in creation order.
func (r *CouchDBBoardRepository) List(ctx context.Context) ([]domain.BoardSummary, error) {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": boardDocType,
		},
		"fields": []string{"board_id", "name", "created_at"},
	}

	rows := r.db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var docs []boardDoc
	for rows.Next() {
		var doc boardDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt < docs[j].CreatedAt })

	summaries := make([]domain.BoardSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = domain.BoardSummary{ID: doc.BoardID, Name: doc.Name}
	}
	return summaries, nil
}

// Replace overwrites the stored board with the current revision. A
// concurrent writer that slipped in between read and write loses, so the
// put is retried once against the fresh revision.
func (r *CouchDBBoardRepository) Replace(ctx context.Context, id string, board *domain.Board) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var existing *boardDoc
		existing, err = r.fetch(ctx, id)
		if err != nil {
			return err
		}

		doc := boardDoc{
			ID:          existing.ID,
			Rev:         existing.Rev,
			DocType:     boardDocType,
			BoardID:     id,
			Name:        board.Name,
			Notes:       nonNilNotes(board.Notes),
			Connections: nonNilConnections(board.Connections),
			CreatedAt:   existing.CreatedAt,
			UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		}

		if r.beforePut != nil {
			r.beforePut(id)
		}
		_, err = r.db.Put(ctx, doc.ID, doc)
		if err == nil {
			return nil
		}
		if kivik.HTTPStatus(err) != http.StatusConflict {
			break
		}
	}
	return fmt.Errorf("failed to replace board: %w", err)
}

func (r *CouchDBBoardRepository) fetch(ctx context.Context, id string) (*boardDoc, error) {
	row := r.db.Get(ctx, boardDocID(id))

	var doc boardDoc
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to get board: %w", err)
	}
	return &doc, nil
}

func docToBoard(doc *boardDoc) *domain.Board {
	return &domain.Board{
		ID:          doc.BoardID,
		Name:        doc.Name,
		Notes:       nonNilNotes(doc.Notes),
		Connections: nonNilConnections(doc.Connections),
	}
}

func nonNilNotes(n []domain.Note) []domain.Note {
	if n == nil {
		return []domain.Note{}
	}
	return n
}

func nonNilConnections(c []domain.Connection) []domain.Connection {
	if c == nil {
		return []domain.Connection{}
	}
	return c
}
