package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redteam-academy/api/model"
	"github.com/redteam-academy/api/services/genai"
)

var (
	// ErrLevelNotFound means the requested level key is not in the catalog
	ErrLevelNotFound = errors.New("unknown challenge level")
	// ErrUpstreamGeneration wraps failures from the generation provider
	ErrUpstreamGeneration = errors.New("generation provider failed")
)

// Generator produces a model reply for a full ordered transcript.
// Satisfied by the genai client; tests substitute a fake.
type Generator interface {
	GenerateText(ctx context.Context, contents []genai.Content, options ...genai.GenerateOption) (string, error)
}

// ChatService orchestrates challenge chat sessions against the generation
// provider. The provider only ever sees the rendered context prompt; clients
// never do.
type ChatService struct {
	store     SessionStore
	catalog   *Catalog
	generator Generator
}

// NewChatService creates a new chat service
func NewChatService(store SessionStore, catalog *Catalog, generator Generator) *ChatService {
	return &ChatService{
		store:     store,
		catalog:   catalog,
		generator: generator,
	}
}

// StartOrContinue resolves an existing session by ID, or starts a new one
// for the given level key (default level1). A stale or unknown session ID
// falls through to starting fresh, matching client retry behavior after a
// TTL lapse.
func (s *ChatService) StartOrContinue(ctx context.Context, sessionID, levelKey string) (*model.Session, error) {
	if sessionID != "" {
		session, err := s.store.Get(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}

	if levelKey == "" {
		levelKey = "level1"
	}

	system, err := s.catalog.SystemPrompt(levelKey)
	if err != nil {
		return nil, ErrLevelNotFound
	}

	session := &model.Session{
		ID:       uuid.New().String(),
		LevelKey: levelKey,
		State:    model.SessionAwaitingFirstMessage,
		History: []model.Turn{
			{Role: model.TurnRoleUser, Text: system},
		},
		CreatedAt: time.Now(),
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// SendMessage appends the user's turn, asks the provider for a reply with
// the full transcript, and appends the model turn on success. The whole
// cycle runs under the session's store lock so concurrent messages to one
// session serialize and history order matches arrival order.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, text string) (*model.Session, string, error) {
	var reply string

	session, err := s.store.Update(ctx, sessionID, func(sess *model.Session) error {
		sess.History = append(sess.History, model.Turn{
			Role: model.TurnRoleUser,
			Text: text,
		})

		contents := make([]genai.Content, 0, len(sess.History))
		for _, turn := range sess.History {
			contents = append(contents, genai.NewTextContent(string(turn.Role), turn.Text))
		}

		out, genErr := s.generator.GenerateText(ctx, contents)
		if genErr != nil {
			// No model turn on failure; the mutation is discarded wholesale
			return fmt.Errorf("%w: %v", ErrUpstreamGeneration, genErr)
		}

		sess.History = append(sess.History, model.Turn{
			Role: model.TurnRoleModel,
			Text: out,
		})
		sess.State = model.SessionActive

		reply = out
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return session, reply, nil
}
