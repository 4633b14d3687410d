package audit

import (
	"github.com/campbright/enroll/internal/audit/repository"
	"github.com/campbright/enroll/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
