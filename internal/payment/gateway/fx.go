package gateway

import (
	"github.com/campbright/enroll/internal/config"
	"github.com/campbright/enroll/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.gateway",
	fx.Provide(func(cfg config.Config) domain.Gateway {
		return New(cfg.Gateway)
	}),
)
