package payment

import (
	"github.com/campbright/enroll/internal/payment/gateway"
	"github.com/campbright/enroll/internal/payment/repository"
	"github.com/campbright/enroll/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	gateway.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
