package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	"github.com/smallbiznis/ecclesia/internal/audit/masking"
	"github.com/smallbiznis/ecclesia/internal/client/domain"
	"github.com/smallbiznis/ecclesia/internal/clock"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
	"github.com/smallbiznis/ecclesia/pkg/db/pagination"
	"github.com/smallbiznis/ecclesia/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	parishID, ok := orgcontext.ParishIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidParish
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Client{}, err
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:        uuid.NewString(),
		ParishID:  parishID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Metadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if client.Metadata == nil {
		client.Metadata = datatypes.JSONMap{}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithParish(tx, parishID); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &client)
	})
	if err != nil {
		return domain.Client{}, err
	}

	s.log.Info("client created",
		zap.String("client_id", client.ID),
		zap.String("email", masking.MaskValue(client.Email)),
	)
	s.audit(ctx, parishID, "client.created", client)
	return client, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Client, error) {
	parishID, ok := orgcontext.ParishIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidParish
	}
	id, err := parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	var client *domain.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithParish(tx, parishID); err != nil {
			return err
		}
		var err error
		client, err = s.repo.FindByID(ctx, tx, parishID, id)
		return err
	})
	if err != nil {
		return domain.Client{}, err
	}
	if client == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	parishID, ok := orgcontext.ParishIDFromContext(ctx)
	if !ok {
		return domain.ListClientResponse{}, domain.ErrInvalidParish
	}

	var cursor *domain.ClientCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListClientResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListClientResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.ClientCursor{ID: decoded.ID, CreatedAt: createdAt}
	}

	limit := req.Limit()
	var items []*domain.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithParish(tx, parishID); err != nil {
			return err
		}
		var err error
		items, err = s.repo.List(ctx, tx, parishID, domain.ListClientFilter{
			Name:   req.Name,
			Email:  req.Email,
			Cursor: cursor,
			Limit:  limit,
		})
		return err
	})
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	items, pageInfo, err := pagination.Trim(items, limit, func(item *domain.Client) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID,
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}
	return domain.ListClientResponse{PageInfo: pageInfo, Clients: clients}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateClientRequest) (domain.Client, error) {
	parishID, ok := orgcontext.ParishIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidParish
	}
	id, err := parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	var client *domain.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithParish(tx, parishID); err != nil {
			return err
		}
		var err error
		client, err = s.repo.FindByID(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			client.Name = name
		}
		if req.Email != nil {
			email, err := normalizeEmail(*req.Email)
			if err != nil {
				return err
			}
			client.Email = email
		}
		if req.Phone != nil {
			client.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Address != nil {
			client.Address = strings.TrimSpace(*req.Address)
		}
		if req.Metadata != nil {
			client.Metadata = datatypes.JSONMap(req.Metadata)
		}
		client.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, client)
	})
	if err != nil {
		return domain.Client{}, err
	}

	s.audit(ctx, parishID, "client.updated", *client)
	return *client, nil
}

func (s *Service) audit(ctx context.Context, parishID, action string, client domain.Client) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ParishID:   parishID,
		Action:     action,
		TargetType: "client",
		TargetID:   client.ID,
		Metadata: map[string]any{
			"name":  client.Name,
			"email": client.Email,
			"phone": client.Phone,
		},
	})
	if err != nil {
		s.log.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}

// normalizeEmail accepts an empty address; clients need not have one.
func normalizeEmail(value string) (string, error) {
	email := strings.TrimSpace(value)
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(email), nil
}

func parseID(value string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", domain.ErrInvalidID
	}
	return id.String(), nil
}
