package cemetery

import (
	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/occupancy"
	"github.com/smallbiznis/ecclesia/internal/cemetery/repository"
	"github.com/smallbiznis/ecclesia/internal/cemetery/service"
	"github.com/smallbiznis/ecclesia/internal/cemetery/validation"
	clientdomain "github.com/smallbiznis/ecclesia/internal/client/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("cemetery.service",
	fx.Provide(validation.New),
	fx.Provide(
		repository.ProvideLayout,
		repository.ProvideGraves,
		repository.ProvideConcessions,
		repository.ProvideBurials,
		repository.ProvidePayments,
		repository.ProvideOccupancy,
	),
	fx.Provide(func(clients clientdomain.Repository) domain.ReferenceChecker { return clients }),
	fx.Provide(occupancy.NewEngine),
	fx.Provide(fx.Annotate(service.NewService, fx.As(fx.Self()), fx.As(new(domain.Service)))),
)
