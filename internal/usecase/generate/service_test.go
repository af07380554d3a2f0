package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

type stubClients struct {
	settings domain.ClientSettings
}

func (s *stubClients) UpsertClientSettings(context.Context, domain.ClientSettings) error { return nil }
func (s *stubClients) GetClientSettings(context.Context, int64) (domain.ClientSettings, error) {
	return s.settings, nil
}

type stubPosts struct {
	inserted []domain.Post
}

func (s *stubPosts) InsertPost(_ context.Context, post domain.Post) (int64, error) {
	s.inserted = append(s.inserted, post)
	return int64(len(s.inserted)), nil
}
func (s *stubPosts) GetPost(context.Context, int64, int64) (domain.Post, error) {
	return domain.Post{}, domain.ErrNotFound
}
func (s *stubPosts) CountPostsThisMonth(context.Context, int64) (int, error) { return 0, nil }
func (s *stubPosts) DeleteOlderThan(context.Context, int) (int64, error)     { return 0, nil }

type stubUsage struct {
	actions []string
}

func (s *stubUsage) RecordUsage(_ context.Context, _ int64, action string) error {
	s.actions = append(s.actions, action)
	return nil
}
func (s *stubUsage) SummarizeUsage(context.Context, int64, int) ([]domain.UsageStat, error) {
	return nil, nil
}

type stubPublisher struct {
	bytesErr   error
	urlErr     error
	textErr    error
	bytesCalls int
	urlCalls   int
	textCalls  int
	statuses   []string
	lastDest   string
}

func (s *stubPublisher) SendPostBytes(_ context.Context, destination, _, _, _ string, _ []byte) (int, string, error) {
	s.bytesCalls++
	s.lastDest = destination
	if s.bytesErr != nil {
		return 0, "", s.bytesErr
	}
	return 101, "file-1", nil
}

func (s *stubPublisher) SendPostURL(_ context.Context, destination, _, _, _, _ string) (int, string, error) {
	s.urlCalls++
	s.lastDest = destination
	if s.urlErr != nil {
		return 0, "", s.urlErr
	}
	return 102, "file-2", nil
}

func (s *stubPublisher) SendPostText(_ context.Context, destination, _, _, _ string) (int, error) {
	s.textCalls++
	s.lastDest = destination
	if s.textErr != nil {
		return 0, s.textErr
	}
	return 103, nil
}

func (s *stubPublisher) SendStatus(_ context.Context, _ int64, text string) error {
	s.statuses = append(s.statuses, text)
	return nil
}

func (s *stubPublisher) Forward(context.Context, string, int, string) (int, error) { return 0, nil }

type stubHoster struct {
	url   string
	err   error
	calls int
}

func (s *stubHoster) Upload(context.Context, []byte) (string, error) {
	s.calls++
	return s.url, s.err
}

func newScriptedService(publisher *stubPublisher, hoster ImageHoster, posts *stubPosts, usage *stubUsage) *Service {
	text := &scriptedProvider{name: "text", results: []domain.GenerationResult{
		domain.TextResult("Заголовок теста"),
		domain.TextResult("Первое предложение поста. Второе предложение поста.\n\n#тест #история"),
		domain.TextResult("dramatic city scene"),
	}}
	image := &scriptedImageProvider{results: []domain.GenerationResult{
		domain.ImageResult([]byte{0xFF, 0xD8}),
	}}
	o := newTestOrchestrator(image, NewTextBackend("main", text))
	clients := &stubClients{settings: domain.ClientSettings{
		ChatID:    42,
		Theme:     "девяностые",
		PostCount: 1,
		Style:     "expert",
		ChannelID: "@testchannel",
		Language:  domain.LanguageRU,
	}}
	return NewService(o, NewAssembler(zerolog.Nop()), publisher, hoster, clients, posts, usage, zerolog.Nop(), 950)
}

func TestRunPublishesWithImage(t *testing.T) {
	publisher := &stubPublisher{}
	posts := &stubPosts{}
	usage := &stubUsage{}
	service := newScriptedService(publisher, nil, posts, usage)

	err := service.Run(context.Background(), domain.GenerationJob{ID: "job-1", ChatID: 42, RequestedAt: time.Now()})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if publisher.bytesCalls != 1 {
		t.Fatalf("ожидали одну доставку байтами, было %d", publisher.bytesCalls)
	}
	if publisher.textCalls != 0 {
		t.Fatalf("текстовый фолбэк не должен вызываться")
	}
	if publisher.lastDest != "@testchannel" {
		t.Fatalf("пост должен уйти в канал клиента, ушёл в %q", publisher.lastDest)
	}
	if len(posts.inserted) != 1 {
		t.Fatalf("ожидали один сохранённый пост, было %d", len(posts.inserted))
	}
	post := posts.inserted[0]
	if post.FileID != "file-1" || post.MessageID != 101 {
		t.Fatalf("пост сохранён с неверными идентификаторами: %+v", post)
	}
	if post.Title != "Заголовок теста" {
		t.Fatalf("неверный заголовок: %q", post.Title)
	}
	if post.Destination != "@testchannel" {
		t.Fatalf("пост должен хранить адрес доставки для пересылки, получили %q", post.Destination)
	}
	if len(usage.actions) != 1 || usage.actions[0] != domain.UsageActionPublish {
		t.Fatalf("ожидали событие publish, получили %v", usage.actions)
	}
}

func TestRunFallsBackToTextWhenImageDeliveryFails(t *testing.T) {
	publisher := &stubPublisher{
		bytesErr: errors.New("байты не прошли"),
		urlErr:   errors.New("url не прошёл"),
	}
	hoster := &stubHoster{url: "https://i.imgur.com/test.jpg"}
	posts := &stubPosts{}
	usage := &stubUsage{}
	service := newScriptedService(publisher, hoster, posts, usage)

	err := service.Run(context.Background(), domain.GenerationJob{ID: "job-2", ChatID: 42, RequestedAt: time.Now()})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if publisher.bytesCalls != 1 || hoster.calls != 1 || publisher.urlCalls != 1 {
		t.Fatalf("ожидали цепочку байты→хостинг→URL: %d/%d/%d", publisher.bytesCalls, hoster.calls, publisher.urlCalls)
	}
	if publisher.textCalls != 1 {
		t.Fatalf("текстовый фолбэк должен выполниться ровно один раз, было %d", publisher.textCalls)
	}
	if len(posts.inserted) != 1 {
		t.Fatalf("пост всё равно должен сохраниться")
	}
	if posts.inserted[0].FileID != "" {
		t.Fatalf("текстовый пост не имеет file_id: %q", posts.inserted[0].FileID)
	}
}

func TestRunTextOnlySkipsImage(t *testing.T) {
	publisher := &stubPublisher{}
	posts := &stubPosts{}
	usage := &stubUsage{}

	text := &scriptedProvider{name: "text", results: []domain.GenerationResult{
		domain.TextResult("Заголовок"),
		domain.TextResult("Текст поста про события. Ещё немного текста.\n\n#тест"),
	}}
	image := &scriptedImageProvider{}
	o := newTestOrchestrator(image, NewTextBackend("main", text))
	clients := &stubClients{settings: domain.ClientSettings{ChatID: 42, Theme: "тема", PostCount: 1, Language: domain.LanguageRU}}
	service := NewService(o, NewAssembler(zerolog.Nop()), publisher, nil, clients, posts, usage, zerolog.Nop(), 950)

	err := service.Run(context.Background(), domain.GenerationJob{ID: "job-3", ChatID: 42, TextOnly: true, RequestedAt: time.Now()})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if image.calls != 0 {
		t.Fatalf("в текстовом режиме изображение не генерируется")
	}
	if publisher.textCalls != 1 || publisher.bytesCalls != 0 {
		t.Fatalf("ожидали только текстовую доставку: text=%d bytes=%d", publisher.textCalls, publisher.bytesCalls)
	}
}

func TestRunReportsFailureWhenAllProvidersDead(t *testing.T) {
	publisher := &stubPublisher{}
	posts := &stubPosts{}
	usage := &stubUsage{}

	dead := &scriptedProvider{name: "dead"}
	o := newTestOrchestrator(nil, NewTextBackend("main", dead))
	clients := &stubClients{settings: domain.ClientSettings{ChatID: 42, Theme: "тема", PostCount: 1, Language: domain.LanguageRU}}
	service := NewService(o, NewAssembler(zerolog.Nop()), publisher, nil, clients, posts, usage, zerolog.Nop(), 950)

	err := service.Run(context.Background(), domain.GenerationJob{ID: "job-4", ChatID: 42, RequestedAt: time.Now()})
	if err == nil {
		t.Fatalf("ожидали ошибку при недоступных провайдерах")
	}
	if len(posts.inserted) != 0 {
		t.Fatalf("посты не должны сохраняться")
	}
	if len(publisher.statuses) == 0 {
		t.Fatalf("клиент должен получить сообщение о сбое")
	}
}
