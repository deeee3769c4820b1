//go:build wireinject
// +build wireinject

package main

import (
	"credit-service/internal/biz"
	"credit-service/internal/conf"
	"credit-service/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// CronApp Cron 应用结构
type CronApp struct {
	audit *biz.AuditUseCase
}

// wireApp 初始化应用
func wireApp(*conf.Bootstrap, log.Logger) (*CronApp, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		wire.Struct(new(CronApp), "*"),
	))
}
