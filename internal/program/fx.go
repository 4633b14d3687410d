package program

import (
	"github.com/campbright/enroll/internal/program/repository"
	"github.com/campbright/enroll/internal/program/service"
	"go.uber.org/fx"
)

var Module = fx.Module("program.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
