package registration

import (
	"github.com/campbright/enroll/internal/registration/repository"
	"github.com/campbright/enroll/internal/registration/service"
	"go.uber.org/fx"
)

var Module = fx.Module("registration.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
