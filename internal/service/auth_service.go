package service

import (
	"context"
	"time"

	"own-ai-chat/internal/constant"
	"own-ai-chat/internal/dto"
	"own-ai-chat/internal/entity"
	"own-ai-chat/internal/pkg/serverutils"
	"own-ai-chat/internal/repository/specification"
	"own-ai-chat/internal/repository/unitofwork"
	"own-ai-chat/pkg/apperr"
	"own-ai-chat/pkg/events"

	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	jwtSecret  string
	tokenTTL   time.Duration
	bus        events.Publisher
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, jwtSecret string, tokenTTL time.Duration, bus events.Publisher) IAuthService {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &authService{
		uowFactory: uowFactory,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		bus:        bus,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByUsername{Username: req.Username})
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "auth.register", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.Validation, "auth.register", "username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "auth.register", err)
	}

	user := &entity.User{Username: req.Username, PasswordHash: string(hash)}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "auth.register", err)
	}

	s.publish(ctx, events.New(constant.EventUserRegistered, map[string]interface{}{
		"user_id":  user.Id.String(),
		"username": user.Username,
	}))
	return &dto.RegisterResponse{Id: user.Id, Username: user.Username}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByUsername{Username: req.Username})
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "auth.login", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "auth.login", "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "auth.login", "invalid credentials")
	}

	token, err := serverutils.IssueToken(user.Id, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "auth.login", err)
	}

	s.publish(ctx, events.New(constant.EventUserLogin, map[string]interface{}{
		"user_id": user.Id.String(),
	}))
	return &dto.LoginResponse{
		Token: token,
		User:  &dto.UserResponse{Id: user.Id, Username: user.Username},
	}, nil
}

func (s *authService) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, eventPublishTimeout)
	defer cancel()
	// Auth never fails because the event bus is down.
	_ = s.bus.Publish(ctx, event)
}
