package tg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/zelenin/go-tdlib/client"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/ports"
)

const chatListLimit = 200

// Service owns the TDLib client lifecycle. Construction is cheap; Start spins
// up the client in the background because TDLib's NewClient blocks until the
// authorization flow reaches ready.
type Service struct {
	auth   *Authorizer
	logger *slog.Logger

	mu    sync.Mutex
	tdlib *client.Client
}

func NewService(apiID int32, apiHash, baseDir string, logger *slog.Logger) (*Service, error) {
	sessionDir := filepath.Join(baseDir, "tdlib")
	dbDir := filepath.Join(sessionDir, "database")
	filesDir := filepath.Join(sessionDir, "files")

	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir files dir: %w", err)
	}

	if _, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: 1,
	}); err != nil {
		logger.Error("TDLib SetLogVerbosityLevel", "error", err)
	}

	params := &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   dbDir,
		FilesDirectory:      filesDir,
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               apiID,
		ApiHash:             apiHash,
		SystemLanguageCode:  "en",
		DeviceModel:         "Server",
		SystemVersion:       "1.0",
		ApplicationVersion:  "1.0",
	}

	return &Service{
		auth:   NewAuthorizer(params),
		logger: logger,
	}, nil
}

// Auth exposes the authorization state machine and submit operations.
func (s *Service) Auth() *Authorizer {
	return s.auth
}

// Start launches the TDLib client. It returns immediately; progress is
// observable through the authorization state machine.
func (s *Service) Start() {
	go func() {
		tdc, err := client.NewClient(s.auth)
		if err != nil {
			s.logger.Error("TDLib client failed", "error", err)
			s.auth.transition(ports.StateError, err.Error())
			return
		}

		s.mu.Lock()
		s.tdlib = tdc
		s.mu.Unlock()

		me, err := tdc.GetMe()
		if err != nil {
			s.logger.Error("GetMe failed", "error", err)
			return
		}
		s.logger.Info("TDLib client ready", "self_id", me.Id)
	}()
}

func (s *Service) Close() {
	s.auth.Close()

	s.mu.Lock()
	tdc := s.tdlib
	s.mu.Unlock()
	if tdc != nil {
		tdc.Close()
	}
}

func (s *Service) api() (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tdlib == nil {
		return nil, fmt.Errorf("telegram client not started")
	}
	return s.tdlib, nil
}

// SendText delivers a single message: no reply threading, no formatting
// entities, draft cleared.
func (s *Service) SendText(ctx context.Context, chatID int64, text string) error {
	tdc, err := s.api()
	if err != nil {
		return err
	}

	_, err = tdc.SendMessage(&client.SendMessageRequest{
		ChatId: chatID,
		InputMessageContent: &client.InputMessageText{
			Text: &client.FormattedText{
				Text: text,
			},
			ClearDraft: true,
		},
	})
	if err != nil {
		s.logger.Error("SendMessage failed", "chat_id", chatID, "error", err)
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Info("message sent", "chat_id", chatID, "chars", len(text))
	return nil
}

// ListGroups lists the main chat list and keeps basic groups and non-channel
// supergroups. Member counts come from a secondary per-chat lookup; a failed
// lookup omits that chat rather than aborting the whole fetch.
func (s *Service) ListGroups(ctx context.Context) ([]domain.Group, error) {
	tdc, err := s.api()
	if err != nil {
		return nil, err
	}

	chats, err := tdc.GetChats(&client.GetChatsRequest{
		ChatList: &client.ChatListMain{},
		Limit:    chatListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	groups := make([]domain.Group, 0, len(chats.ChatIds))
	for _, chatID := range chats.ChatIds {
		chat, err := tdc.GetChat(&client.GetChatRequest{ChatId: chatID})
		if err != nil {
			s.logger.Warn("GetChat failed, omitting", "chat_id", chatID, "error", err)
			continue
		}

		switch ct := chat.Type.(type) {
		case *client.ChatTypeBasicGroup:
			bg, err := tdc.GetBasicGroup(&client.GetBasicGroupRequest{
				BasicGroupId: ct.BasicGroupId,
			})
			if err != nil {
				s.logger.Warn("GetBasicGroup failed, omitting", "chat_id", chatID, "error", err)
				continue
			}
			groups = append(groups, domain.Group{
				ID:          chat.Id,
				Title:       chat.Title,
				MemberCount: int(bg.MemberCount),
			})

		case *client.ChatTypeSupergroup:
			if ct.IsChannel {
				continue
			}
			sg, err := tdc.GetSupergroup(&client.GetSupergroupRequest{
				SupergroupId: ct.SupergroupId,
			})
			if err != nil {
				s.logger.Warn("GetSupergroup failed, omitting", "chat_id", chatID, "error", err)
				continue
			}
			groups = append(groups, domain.Group{
				ID:          chat.Id,
				Title:       chat.Title,
				MemberCount: int(sg.MemberCount),
			})
		}
	}

	return groups, nil
}
